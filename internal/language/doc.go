// Package language normalizes user-supplied language hints to the ISO 639-1
// codes the transcription back-ends expect.
//
// Hints arrive from CLI flags and upload form fields in whatever shape the
// user typed: "en", "ENG", "English". Normalizing once at submission time
// keeps per-back-end code mapping out of the ASR clients.
package language
