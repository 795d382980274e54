// Package exporting implements the second pipeline stage: cutting the
// detected speech intervals into per-segment WAV clips.
package exporting

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"scribe/internal/audio"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/stage"
)

// Exporter writes one 16-bit mono WAV clip per detected speech interval.
type Exporter struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	hub    *progress.Hub
}

// New constructs the exporting stage handler.
func New(cfg *config.Config, store *queue.Store, hub *progress.Hub, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		store:  store,
		cfg:    cfg,
		hub:    hub,
		logger: logger.With(logging.String(logging.FieldComponent, "exporting")),
	}
}

// Prepare assigns the clip working directory.
func (e *Exporter) Prepare(ctx context.Context, task *queue.Task) error {
	if task.WorkDir == "" {
		task.WorkDir = filepath.Join(e.cfg.Paths.UploadDir, task.TaskID)
	}
	task.SetProgress("Exporting", "Exporting clips", queue.BasePercent(queue.StatusExporting))
	return nil
}

// Execute cuts the source waveform into clips, splitting intervals longer
// than the configured clip ceiling. A failed individual clip keeps its
// timing slot with no clip path, so the dispatch stage degrades that segment
// to failed instead of silently dropping it; exporting fails only when every
// clip of a non-empty segment set failed.
func (e *Exporter) Execute(ctx context.Context, task *queue.Task) error {
	pub := progress.NewPublisher(e.hub, task.TaskID)
	pub.Progress("Exporting", queue.BasePercent(queue.StatusExporting), "Exporting clips")

	records, err := stage.ParseSegments(task.SegmentsJSON)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		task.SetProgress("Exporting", "No segments to export", queue.BasePercent(queue.StatusExported))
		pub.Progress("Exporting", queue.BasePercent(queue.StatusExported), "No segments to export")
		return nil
	}

	waveform, err := audio.DecodeWAV(task.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "exporting", "decode",
			fmt.Sprintf("cannot decode %s", task.Filename), err)
	}

	segments := make([]audio.Segment, len(records))
	for i, r := range records {
		segments[i] = audio.Segment{Index: r.Index, Start: r.Start, End: r.End}
	}

	clipDir := filepath.Join(task.WorkDir, "clips")
	exporter := &audio.Exporter{MaxClip: time.Duration(e.cfg.VAD.MaxClipSec) * time.Second}
	result, err := exporter.Export(clipDir, waveform, segments)
	if err != nil {
		return services.Wrap(services.ErrTransient, "exporting", "write clips",
			"cannot write clip directory", err)
	}

	for _, failure := range result.Failed {
		e.logger.Warn("clip export failed",
			logging.String(logging.FieldTaskID, task.TaskID),
			logging.Int("clip", failure.Index),
			logging.Error(failure.Err),
		)
		pub.Error("Exporting", fmt.Sprintf("clip %d export failed", failure.Index+1))
	}
	if len(result.Clips) == 0 {
		return services.Wrap(services.ErrTransient, "exporting", "write clips",
			"every clip export failed", nil)
	}

	// Clip windows replace the original intervals: long segments may have
	// been split, so indexes are reassigned densely. Failed clips keep
	// their slot with an empty path.
	exported := make([]stage.SegmentRecord, 0, len(result.Clips)+len(result.Failed))
	for _, clip := range result.Clips {
		exported = append(exported, stage.SegmentRecord{
			Index:    clip.Index,
			Start:    clip.Start,
			End:      clip.End,
			ClipPath: clip.Path,
		})
	}
	for _, failure := range result.Failed {
		exported = append(exported, stage.SegmentRecord{
			Index: failure.Index,
			Start: failure.Start,
			End:   failure.End,
		})
	}
	sort.Slice(exported, func(i, j int) bool { return exported[i].Index < exported[j].Index })
	for i := range exported {
		exported[i].Index = i
	}
	encoded, err := stage.EncodeSegments(exported)
	if err != nil {
		return err
	}
	task.SegmentsJSON = encoded
	task.SegmentsTotal = len(exported)

	message := fmt.Sprintf("Exported %d clips", len(result.Clips))
	task.SetProgress("Exporting", message, queue.BasePercent(queue.StatusExported))
	pub.Progress("Exporting", queue.BasePercent(queue.StatusExported), message)

	e.logger.Info("clip export finished",
		logging.String(logging.FieldTaskID, task.TaskID),
		logging.Int("clips", len(result.Clips)),
		logging.Int("failed", len(result.Failed)),
	)
	return nil
}

// HealthCheck verifies the upload directory is configured.
func (e *Exporter) HealthCheck(ctx context.Context) stage.Health {
	if e.cfg.Paths.UploadDir == "" {
		return stage.Unhealthy("exporting", "upload directory not configured")
	}
	return stage.Healthy("exporting")
}

var _ stage.Handler = (*Exporter)(nil)
