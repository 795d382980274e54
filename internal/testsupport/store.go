package testsupport

import (
	"context"
	"testing"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask enqueues a pending task for tests using the provided store.
func NewTask(t testing.TB, store *queue.Store, sourcePath string, opts ...TaskOption) *queue.Task {
	t.Helper()

	params := queue.NewTaskParams{
		SourcePath: sourcePath,
		Method:     "whisper",
		Formats:    []string{"srt"},
	}
	for _, opt := range opts {
		opt(&params)
	}

	task, err := store.NewTask(context.Background(), params)
	if err != nil {
		t.Fatalf("store.NewTask: %v", err)
	}
	return task
}

// TaskOption customizes the parameters passed to NewTask.
type TaskOption func(*queue.NewTaskParams)

// WithBatch assigns the task to a batch.
func WithBatch(batchID string) TaskOption {
	return func(p *queue.NewTaskParams) {
		p.BatchID = batchID
	}
}

// WithTaskMethod overrides the transcription back-end for the task.
func WithTaskMethod(method string) TaskOption {
	return func(p *queue.NewTaskParams) {
		p.Method = method
	}
}

// WithFormats overrides the requested subtitle formats.
func WithFormats(formats ...string) TaskOption {
	return func(p *queue.NewTaskParams) {
		p.Formats = formats
	}
}

// WithTaskOptions sets per-task overrides on the submission.
func WithTaskOptions(options queue.TaskOptions) TaskOption {
	return func(p *queue.NewTaskParams) {
		p.Options = options
	}
}
