// Package batch coordinates multi-file transcription submissions. Each file
// becomes an independent task sharing a batch identifier; failures in one
// task never abort its siblings.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/subtitle"
)

// Coordinator submits batches into the queue and aggregates their outcomes.
type Coordinator struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// New constructs a batch coordinator.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		cfg:    cfg,
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "batch")),
	}
}

// Request describes a batch of audio files to transcribe with shared
// settings.
type Request struct {
	SourcePaths []string
	Method      string
	Language    string
	Formats     []string
	// Options are per-task overrides applied to every file in the batch.
	Options queue.TaskOptions
}

// Submission records the tasks created for an accepted batch.
type Submission struct {
	BatchID string
	Tasks   []*queue.Task
}

// Submit validates the request, enqueues one task per file under a shared
// batch identifier, and returns the created tasks in submission order.
// The whole batch is rejected up front when it exceeds the configured file
// cap or references a missing file; no partial batch is enqueued.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Submission, error) {
	if len(req.SourcePaths) == 0 {
		return nil, services.Wrap(services.ErrValidation, "batch", "submit",
			"batch contains no files", nil)
	}
	if max := c.cfg.Batch.MaxFiles; len(req.SourcePaths) > max {
		return nil, services.Wrap(services.ErrValidation, "batch", "submit",
			fmt.Sprintf("batch of %d files exceeds the %d file limit", len(req.SourcePaths), max), nil)
	}
	if _, err := subtitle.ParseFormats(req.Formats); err != nil {
		return nil, err
	}
	hint, ok := language.NormalizeHint(req.Language)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "batch", "submit",
			fmt.Sprintf("unrecognized language %q", req.Language), nil)
	}
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}
	for _, path := range req.SourcePaths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "batch", "submit",
				fmt.Sprintf("cannot read %s", filepath.Base(path)), err)
		}
		if info.IsDir() {
			return nil, services.Wrap(services.ErrValidation, "batch", "submit",
				fmt.Sprintf("%s is a directory", filepath.Base(path)), nil)
		}
	}

	batchID := uuid.NewString()
	tasks := make([]*queue.Task, 0, len(req.SourcePaths))
	for _, path := range req.SourcePaths {
		task, err := c.store.NewTask(ctx, queue.NewTaskParams{
			SourcePath: path,
			Method:     req.Method,
			Language:   hint,
			Formats:    req.Formats,
			BatchID:    batchID,
			Options:    req.Options,
		})
		if err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", filepath.Base(path), err)
		}
		tasks = append(tasks, task)
	}

	c.logger.Info("batch submitted",
		logging.String("batch_id", batchID),
		logging.Int("files", len(tasks)),
		logging.String("method", req.Method),
	)
	return &Submission{BatchID: batchID, Tasks: tasks}, nil
}

// Report aggregates the current state of a batch.
type Report struct {
	BatchID    string
	Total      int
	Completed  int
	Failed     int
	InProgress int
	// TotalSegments sums the dispatched segments across the batch.
	TotalSegments int
	// TotalEntries sums the rendered subtitle entries across the batch.
	TotalEntries int
	Tasks        []*queue.Task
}

// Done reports whether every task in the batch has reached a terminal state.
func (r *Report) Done() bool {
	return r.InProgress == 0
}

// Report fetches the batch's tasks and tallies their outcomes.
func (c *Coordinator) Report(ctx context.Context, batchID string) (*Report, error) {
	tasks, err := c.store.TasksByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "batch", "report",
			fmt.Sprintf("no batch %s", batchID), nil)
	}

	report := &Report{BatchID: batchID, Total: len(tasks), Tasks: tasks}
	for _, task := range tasks {
		report.TotalSegments += task.SegmentsTotal
		report.TotalEntries += task.EntriesTotal
		switch task.Status {
		case queue.StatusCompleted:
			report.Completed++
		case queue.StatusFailed:
			report.Failed++
		default:
			report.InProgress++
		}
	}
	return report, nil
}

// Wait polls the batch until every task is terminal or the context ends.
// It returns the final report; a batch with failed tasks still completes,
// the failures are visible in the report.
func (c *Coordinator) Wait(ctx context.Context, batchID string, poll time.Duration) (*Report, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		report, err := c.Report(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if report.Done() {
			return report, nil
		}
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-ticker.C:
		}
	}
}
