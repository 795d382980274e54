// Package segmenting implements the first pipeline stage: detecting speech
// intervals in the task's source audio.
package segmenting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"scribe/internal/audio"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/stage"
)

// Segmenter runs voice activity detection over the task's source file.
type Segmenter struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	hub    *progress.Hub
}

// New constructs the segmenting stage handler.
func New(cfg *config.Config, store *queue.Store, hub *progress.Hub, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Segmenter{
		store:  store,
		cfg:    cfg,
		hub:    hub,
		logger: logger.With(logging.String(logging.FieldComponent, "segmenting")),
	}
}

// Prepare verifies the source file exists and resets stage state.
func (s *Segmenter) Prepare(ctx context.Context, task *queue.Task) error {
	info, err := os.Stat(task.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "segmenting", "prepare",
			fmt.Sprintf("source file %s is missing", task.SourcePath), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "segmenting", "prepare",
			fmt.Sprintf("source path %s is a directory", task.SourcePath), nil)
	}
	task.SegmentsJSON = ""
	task.SegmentsTotal = 0
	task.SetProgress("Segmenting", "Detecting speech", queue.BasePercent(queue.StatusSegmenting))
	return nil
}

// Execute decodes the source WAV and persists the detected speech intervals.
// A source with no detectable speech is not an error; the task continues
// with zero segments and completes with empty outputs.
func (s *Segmenter) Execute(ctx context.Context, task *queue.Task) error {
	pub := progress.NewPublisher(s.hub, task.TaskID)
	pub.Progress("Segmenting", queue.BasePercent(queue.StatusSegmenting), "Detecting speech")

	waveform, err := audio.DecodeWAV(task.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "segmenting", "decode",
			fmt.Sprintf("cannot decode %s", task.Filename), err)
	}

	// Caller-supplied thresholds win over the configured defaults.
	minSpeechMs := s.cfg.VAD.MinSpeechMs
	minSilenceMs := s.cfg.VAD.MinSilenceMs
	overrides := task.Options()
	if overrides.MinSpeechMs > 0 {
		minSpeechMs = overrides.MinSpeechMs
	}
	if overrides.MinSilenceMs > 0 {
		minSilenceMs = overrides.MinSilenceMs
	}

	detector, err := audio.NewSegmenter(audio.SegmenterParams{
		MinSpeech:     time.Duration(minSpeechMs) * time.Millisecond,
		MinSilence:    time.Duration(minSilenceMs) * time.Millisecond,
		ThresholdDBFS: s.cfg.VAD.ThresholdDBFS,
	})
	if err != nil {
		return err
	}

	segments, err := detector.Segment(waveform)
	if err != nil {
		return err
	}

	records := make([]stage.SegmentRecord, 0, len(segments))
	for _, seg := range segments {
		records = append(records, stage.SegmentRecord{Index: seg.Index, Start: seg.Start, End: seg.End})
	}
	encoded, err := stage.EncodeSegments(records)
	if err != nil {
		return err
	}
	task.SegmentsJSON = encoded
	task.SegmentsTotal = len(records)

	message := fmt.Sprintf("Detected %d speech segments", len(records))
	if len(records) == 0 {
		message = "No speech detected"
	}
	task.SetProgress("Segmenting", message, queue.BasePercent(queue.StatusSegmented))
	pub.Progress("Segmenting", queue.BasePercent(queue.StatusSegmented), message)

	s.logger.Info("segmentation finished",
		logging.String(logging.FieldTaskID, task.TaskID),
		logging.Int("segments", len(records)),
		logging.Duration("audio_duration", waveform.Duration()),
	)
	return nil
}

// HealthCheck reports readiness. Segmentation has no external dependencies
// beyond validated thresholds.
func (s *Segmenter) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg.VAD.MinSpeechMs < config.MinThresholdMs || s.cfg.VAD.MinSpeechMs > config.MaxThresholdMs {
		return stage.Unhealthy("segmenting", "min speech threshold out of range")
	}
	return stage.Healthy("segmenting")
}

var _ stage.Handler = (*Segmenter)(nil)
