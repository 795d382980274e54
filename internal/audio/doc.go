// Package audio provides waveform decoding, energy-based voice activity
// segmentation, and per-segment clip export for the transcription pipeline.
//
// Only RIFF/WAVE input is handled here; container demuxing and codec decoding
// belong to upstream tooling that hands scribe a decoded WAV file.
package audio
