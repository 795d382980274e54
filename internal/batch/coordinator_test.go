package batch_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/batch"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

func writeSources(t *testing.T, dir string, n int) []string {
	t.Helper()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("clip%02d.wav", i))
		testsupport.WriteFile(t, path, 64)
		paths = append(paths, path)
	}
	return paths
}

func TestSubmitCreatesTasksWithSharedBatchID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 3)
	sub, err := coord.Submit(context.Background(), batch.Request{
		SourcePaths: paths,
		Method:      "whisper",
		Formats:     []string{"srt", "txt"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.BatchID == "" {
		t.Fatal("empty batch id")
	}
	if len(sub.Tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(sub.Tasks))
	}
	for i, task := range sub.Tasks {
		if task.BatchID != sub.BatchID {
			t.Fatalf("task %d batch id = %q, want %q", i, task.BatchID, sub.BatchID)
		}
		if task.SourcePath != paths[i] {
			t.Fatalf("task %d source = %q, want %q", i, task.SourcePath, paths[i])
		}
		if task.Status != queue.StatusPending {
			t.Fatalf("task %d status = %s", i, task.Status)
		}
	}
}

func TestSubmitRejectsOversizedBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), cfg.Batch.MaxFiles+1)
	_, err := coord.Submit(context.Background(), batch.Request{SourcePaths: paths, Method: "whisper"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	// Nothing may have been enqueued.
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats[queue.StatusPending] != 0 {
		t.Fatalf("pending = %d after rejected batch", stats[queue.StatusPending])
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	dir := t.TempDir()
	paths := writeSources(t, dir, 1)
	paths = append(paths, filepath.Join(dir, "absent.wav"))

	_, err := coord.Submit(context.Background(), batch.Request{SourcePaths: paths, Method: "whisper"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitRejectsUnknownFormat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 1)
	_, err := coord.Submit(context.Background(), batch.Request{
		SourcePaths: paths,
		Method:      "whisper",
		Formats:     []string{"ass"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitNormalizesLanguageHint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 1)
	sub, err := coord.Submit(context.Background(), batch.Request{
		SourcePaths: paths,
		Method:      "whisper",
		Language:    "English",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Tasks[0].Language != "en" {
		t.Fatalf("language = %q, want %q", sub.Tasks[0].Language, "en")
	}

	_, err = coord.Submit(context.Background(), batch.Request{
		SourcePaths: paths,
		Method:      "whisper",
		Language:    "klingon",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitPersistsTaskOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 2)
	options := queue.TaskOptions{MinSpeechMs: 300, ASRModel: "large-v3"}
	sub, err := coord.Submit(context.Background(), batch.Request{
		SourcePaths: paths,
		Method:      "whisper",
		Options:     options,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i, task := range sub.Tasks {
		if task.Options() != options {
			t.Fatalf("task %d options = %+v, want %+v", i, task.Options(), options)
		}
	}
}

func TestSubmitRejectsOutOfRangeThresholds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 1)
	_, err := coord.Submit(context.Background(), batch.Request{
		SourcePaths: paths,
		Method:      "whisper",
		Options:     queue.TaskOptions{MinSilenceMs: 50000},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats[queue.StatusPending] != 0 {
		t.Fatalf("pending = %d after rejected batch", stats[queue.StatusPending])
	}
}

func TestReportCountsPartialSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 3)
	sub, err := coord.Submit(context.Background(), batch.Request{SourcePaths: paths, Method: "whisper"})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	sub.Tasks[0].Status = queue.StatusCompleted
	sub.Tasks[0].SegmentsTotal = 4
	sub.Tasks[0].EntriesTotal = 3
	sub.Tasks[1].Status = queue.StatusCompleted
	sub.Tasks[1].SegmentsTotal = 2
	sub.Tasks[1].EntriesTotal = 2
	sub.Tasks[2].SetFailed("asr backend unreachable")
	for _, task := range sub.Tasks {
		if err := store.Update(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	report, err := coord.Report(ctx, sub.BatchID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !report.Done() {
		t.Fatal("batch with all-terminal tasks reported not done")
	}
	if report.Completed != 2 || report.Failed != 1 || report.InProgress != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.TotalSegments != 6 || report.TotalEntries != 5 {
		t.Fatalf("totals = %d segments, %d entries", report.TotalSegments, report.TotalEntries)
	}
}

func TestReportUnknownBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	_, err := coord.Report(context.Background(), "no-such-batch")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWaitReturnsWhenBatchSettles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	coord := batch.New(cfg, store, nil)

	paths := writeSources(t, t.TempDir(), 2)
	sub, err := coord.Submit(context.Background(), batch.Request{SourcePaths: paths, Method: "whisper"})
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		ctx := context.Background()
		for _, task := range sub.Tasks {
			task.Status = queue.StatusCompleted
			_ = store.Update(ctx, task)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report, err := coord.Wait(ctx, sub.BatchID, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if report.Completed != 2 {
		t.Fatalf("completed = %d, want 2", report.Completed)
	}
}
