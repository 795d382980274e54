// Package services defines the shared error taxonomy used across the
// transcription pipeline. Errors are tagged with sentinel markers so that
// callers can classify failures (configuration, validation, timeout,
// transient) without string matching.
package services
