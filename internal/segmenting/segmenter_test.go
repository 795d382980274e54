package segmenting_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/queue"
	"scribe/internal/segmenting"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/testsupport"
)

func TestExecuteDetectsSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	source := filepath.Join(testsupport.BaseDir(cfg), "talk.wav")
	testsupport.WriteToneWAV(t, source,
		testsupport.TonePart{Speech: false, Duration: 2 * time.Second},
		testsupport.TonePart{Speech: true, Duration: 3 * time.Second},
		testsupport.TonePart{Speech: false, Duration: 5 * time.Second},
	)

	task := testsupport.NewTask(t, store, source)
	handler := segmenting.New(cfg, store, nil, nil)

	if err := handler.Prepare(context.Background(), task); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, err := stage.ParseSegments(task.SegmentsJSON)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(records), records)
	}
	if task.SegmentsTotal != 1 {
		t.Fatalf("segments total = %d", task.SegmentsTotal)
	}
}

func TestExecutePrefersTaskThresholds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	source := filepath.Join(testsupport.BaseDir(cfg), "gapped.wav")
	testsupport.WriteToneWAV(t, source,
		testsupport.TonePart{Speech: true, Duration: time.Second},
		testsupport.TonePart{Speech: false, Duration: time.Second},
		testsupport.TonePart{Speech: true, Duration: time.Second},
	)

	handler := segmenting.New(cfg, store, nil, nil)

	// With the configured thresholds the one-second gap splits the audio.
	task := testsupport.NewTask(t, store, source)
	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.SegmentsTotal != 2 {
		t.Fatalf("segments with defaults = %d, want 2", task.SegmentsTotal)
	}

	// A task-level minimum silence longer than the gap bridges it.
	bridged := testsupport.NewTask(t, store, source,
		testsupport.WithTaskOptions(queue.TaskOptions{MinSilenceMs: 2000}))
	if err := handler.Execute(context.Background(), bridged); err != nil {
		t.Fatalf("Execute with overrides: %v", err)
	}
	if bridged.SegmentsTotal != 1 {
		t.Fatalf("segments with override = %d, want 1", bridged.SegmentsTotal)
	}
}

func TestExecuteSilentSourceYieldsZeroSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	source := filepath.Join(testsupport.BaseDir(cfg), "silence.wav")
	testsupport.WriteToneWAV(t, source, testsupport.TonePart{Speech: false, Duration: 3 * time.Second})

	task := testsupport.NewTask(t, store, source)
	handler := segmenting.New(cfg, store, nil, nil)

	if err := handler.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if task.SegmentsTotal != 0 {
		t.Fatalf("segments total = %d, want 0", task.SegmentsTotal)
	}
}

func TestPrepareMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	task := testsupport.NewTask(t, store, filepath.Join(testsupport.BaseDir(cfg), "absent.wav"))
	handler := segmenting.New(cfg, store, nil, nil)

	err := handler.Prepare(context.Background(), task)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExecuteRejectsNonAudioSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	source := filepath.Join(testsupport.BaseDir(cfg), "junk.wav")
	testsupport.WriteFile(t, source, 128)

	task := testsupport.NewTask(t, store, source)
	handler := segmenting.New(cfg, store, nil, nil)

	err := handler.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := segmenting.New(cfg, store, nil, nil)

	health := handler.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}

	cfg.VAD.MinSpeechMs = 0
	health = handler.HealthCheck(context.Background())
	if health.Ready {
		t.Fatal("expected unhealthy with zero threshold")
	}
}
