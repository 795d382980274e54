// Package asr defines the transcription back-end abstraction and the two
// built-in back-ends: a self-hosted faster-whisper HTTP server and the
// hosted qwen-asr service.
//
// Back-ends are registered by name in a Registry built from configuration.
// Registration validates credentials and endpoints up front so a
// misconfigured back-end fails task submission instead of failing per
// segment mid-pipeline.
package asr
