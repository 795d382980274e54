package audio_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/audio"
)

func TestExportWritesOrderedClips(t *testing.T) {
	dir := t.TempDir()
	w := buildWaveform(
		part{speech: true, d: time.Second},
		part{speech: false, d: time.Second},
		part{speech: true, d: time.Second},
	)
	segments := []audio.Segment{
		{Index: 0, Start: 0, End: time.Second},
		{Index: 1, Start: 2 * time.Second, End: 3 * time.Second},
	}

	exporter := &audio.Exporter{MaxClip: 60 * time.Second}
	result, err := exporter.Export(dir, w, segments)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failed)
	}
	if len(result.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(result.Clips))
	}

	for i, clip := range result.Clips {
		wantName := fmt.Sprintf("segment_%04d.wav", i+1)
		if filepath.Base(clip.Path) != wantName {
			t.Fatalf("clip %d named %s, want %s", i, filepath.Base(clip.Path), wantName)
		}
		decoded, err := audio.DecodeWAV(clip.Path)
		if err != nil {
			t.Fatalf("decode clip %d: %v", i, err)
		}
		wantSamples := int((clip.End - clip.Start).Seconds() * float64(w.SampleRate))
		if got := len(decoded.Samples); got != wantSamples {
			t.Fatalf("clip %d has %d samples, want %d", i, got, wantSamples)
		}
	}
}

func TestExportSplitsLongSegments(t *testing.T) {
	dir := t.TempDir()
	w := buildWaveform(part{speech: true, d: 5 * time.Second})
	segments := []audio.Segment{{Index: 0, Start: 0, End: 5 * time.Second}}

	exporter := &audio.Exporter{MaxClip: 2 * time.Second}
	result, err := exporter.Export(dir, w, segments)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(result.Clips) != 3 {
		t.Fatalf("expected 3 clips after splitting, got %d", len(result.Clips))
	}
	if result.Clips[2].End != 5*time.Second {
		t.Fatalf("final clip ends at %s, want 5s", result.Clips[2].End)
	}
	for i := 1; i < len(result.Clips); i++ {
		if result.Clips[i].Start != result.Clips[i-1].End {
			t.Fatalf("clip %d starts at %s, previous ended at %s", i, result.Clips[i].Start, result.Clips[i-1].End)
		}
	}
}

func TestExportContinuesAfterClipFailure(t *testing.T) {
	dir := t.TempDir()
	w := buildWaveform(part{speech: true, d: 2 * time.Second})
	segments := []audio.Segment{
		{Index: 0, Start: 0, End: time.Second},
		{Index: 1, Start: time.Second, End: 2 * time.Second},
	}

	// Occupy the first clip's path with a directory so the write fails.
	if err := os.MkdirAll(filepath.Join(dir, "segment_0001.wav"), 0o755); err != nil {
		t.Fatal(err)
	}

	exporter := &audio.Exporter{MaxClip: 60 * time.Second}
	result, err := exporter.Export(dir, w, segments)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	failure := result.Failed[0]
	if failure.Index != 0 || failure.Start != 0 || failure.End != time.Second {
		t.Fatalf("failure lost its window: %+v", failure)
	}
	if len(result.Clips) != 1 {
		t.Fatalf("expected 1 surviving clip, got %d", len(result.Clips))
	}
	if filepath.Base(result.Clips[0].Path) != "segment_0002.wav" {
		t.Fatalf("surviving clip = %s", result.Clips[0].Path)
	}
}
