// Package transcription fans exported clips out to a transcription back-end
// with bounded concurrency and aggregates the per-segment outcomes.
//
// Individual clip failures degrade the result instead of aborting the task:
// a failed segment keeps its slot with an error marker so subtitle assembly
// stays aligned with the surviving segments.
package transcription
