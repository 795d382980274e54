// Package assembling implements the final pipeline stage: rendering the
// transcription results into the requested subtitle formats.
package assembling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/subtitle"
	"scribe/internal/transcription"
)

// Assembler renders subtitle files and the bundle archive for a task.
type Assembler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	hub    *progress.Hub
}

// New constructs the assembling stage handler.
func New(cfg *config.Config, store *queue.Store, hub *progress.Hub, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		store:  store,
		cfg:    cfg,
		hub:    hub,
		logger: logger.With(logging.String(logging.FieldComponent, "assembling")),
	}
}

// Prepare validates the requested formats and assigns the output directory.
func (a *Assembler) Prepare(ctx context.Context, task *queue.Task) error {
	if _, err := subtitle.ParseFormats(task.FormatList()); err != nil {
		return err
	}
	if task.OutputDir == "" {
		task.OutputDir = filepath.Join(a.cfg.Paths.OutputDir, task.TaskID)
	}
	task.SetProgress("Assembling", "Writing subtitle files", queue.BasePercent(queue.StatusAssembling))
	return nil
}

// Execute renders every requested format plus the zip archive. Failed and
// empty segments are omitted from the rendered entries; a task whose
// transcription produced nothing still completes with well-formed empty
// files.
func (a *Assembler) Execute(ctx context.Context, task *queue.Task) error {
	pub := progress.NewPublisher(a.hub, task.TaskID)
	pub.Progress("Assembling", queue.BasePercent(queue.StatusAssembling), "Writing subtitle files")

	results, err := stage.ParseResults(task.ResultsJSON)
	if err != nil {
		return err
	}
	formats, err := subtitle.ParseFormats(task.FormatList())
	if err != nil {
		return err
	}

	entries := make([]subtitle.Entry, 0, len(results))
	for _, r := range results {
		if r.Outcome != transcription.OutcomeSucceeded {
			continue
		}
		entries = append(entries, subtitle.Entry{Start: r.Start, End: r.End, Text: r.Text})
	}
	task.EntriesTotal = len(entries)

	base := subtitle.BaseName(task.Filename)
	bundle, err := subtitle.WriteFiles(task.OutputDir, base, formats, entries)
	if err != nil {
		return services.Wrap(services.ErrTransient, "assembling", "write files",
			"cannot write subtitle files", err)
	}

	archivePath := filepath.Join(task.OutputDir, base+".zip")
	if err := subtitle.WriteArchive(archivePath, bundle); err != nil {
		return services.Wrap(services.ErrTransient, "assembling", "write archive",
			"cannot write bundle archive", err)
	}

	files := make(map[string]string, len(bundle)+1)
	for format, path := range bundle {
		files[string(format)] = path
	}
	files["zip"] = archivePath
	encoded, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("marshal output files: %w", err)
	}
	task.FilesJSON = string(encoded)

	message := fmt.Sprintf("Wrote %d subtitle files", len(bundle))
	task.SetProgress("Completed", message, queue.BasePercent(queue.StatusCompleted))
	pub.Progress("Assembling", 98, message)

	a.logger.Info("assembly finished",
		logging.String(logging.FieldTaskID, task.TaskID),
		logging.Int("formats", len(bundle)),
		logging.Int("entries", len(entries)),
	)
	return nil
}

// HealthCheck verifies the output directory is configured.
func (a *Assembler) HealthCheck(ctx context.Context) stage.Health {
	if a.cfg.Paths.OutputDir == "" {
		return stage.Unhealthy("assembling", "output directory not configured")
	}
	return stage.Healthy("assembling")
}

var _ stage.Handler = (*Assembler)(nil)
