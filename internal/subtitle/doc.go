// Package subtitle renders transcription entries into srt, vtt, lrc, and
// txt outputs and writes the per-task output files and archive.
//
// Entries with empty text are omitted from every format and the remaining
// entries are renumbered contiguously, so a partially failed transcription
// still yields well-formed files.
package subtitle
