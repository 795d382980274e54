// Package transcribing implements the third pipeline stage: dispatching
// exported clips to the configured transcription back-end.
package transcribing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/transcription"
)

// Transcriber fans clips out to a back-end and records per-segment results.
type Transcriber struct {
	store    *queue.Store
	cfg      *config.Config
	registry *asr.Registry
	logger   *slog.Logger
	hub      *progress.Hub
}

// New constructs the transcribing stage handler.
func New(cfg *config.Config, store *queue.Store, registry *asr.Registry, hub *progress.Hub, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{
		store:    store,
		cfg:      cfg,
		registry: registry,
		hub:      hub,
		logger:   logger.With(logging.String(logging.FieldComponent, "transcribing")),
	}
}

// Prepare resolves the task's back-end so a misconfigured method fails
// before any clips are sent.
func (t *Transcriber) Prepare(ctx context.Context, task *queue.Task) error {
	if _, err := t.registry.Resolve(task.Method); err != nil {
		return err
	}
	task.SetProgress("Transcribing", "Transcribing segments", queue.BasePercent(queue.StatusTranscribing))
	return nil
}

// Execute transcribes every exported clip. Individual clip failures degrade
// the result; the stage errors only when every segment failed or the
// context was cancelled.
func (t *Transcriber) Execute(ctx context.Context, task *queue.Task) error {
	pub := progress.NewPublisher(t.hub, task.TaskID)

	records, err := stage.ParseSegments(task.SegmentsJSON)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		task.ResultsJSON = "[]"
		task.SetProgress("Transcribing", "No segments to transcribe", queue.BasePercent(queue.StatusTranscribed))
		pub.Progress("Transcribing", queue.BasePercent(queue.StatusTranscribed), "No segments to transcribe")
		return nil
	}

	plugin, err := t.registry.Resolve(task.Method)
	if err != nil {
		return err
	}

	language := task.Language
	if language == "" {
		language = t.cfg.ASR.Language
	}
	overrides := task.Options()
	options := asr.Options{
		Language: language,
		Timeout:  time.Duration(t.cfg.ASR.RequestTimeout) * time.Second,
		Endpoint: overrides.ASREndpoint,
		APIKey:   overrides.ASRAPIKey,
		Model:    overrides.ASRModel,
	}

	clips := make([]transcription.Clip, len(records))
	for i, r := range records {
		clips[i] = transcription.Clip{Index: r.Index, Path: r.ClipPath, Start: r.Start, End: r.End}
	}

	start := queue.BasePercent(queue.StatusTranscribing)
	span := queue.BasePercent(queue.StatusTranscribed) - start

	dispatcher := transcription.NewDispatcher(plugin, t.cfg.ASR.SegmentConcurrency, options, t.logger)
	dispatcher.OnProgress = func(done, total int) {
		percent := start + span*float64(done)/float64(total)
		message := fmt.Sprintf("Transcribed %d/%d segments", done, total)
		pub.Progress("Transcribing", percent, message)
		pub.Log(progress.LevelInfo, message, map[string]string{
			"done":  strconv.Itoa(done),
			"total": strconv.Itoa(total),
		})

		copy := *task
		copy.SetProgress("Transcribing", message, percent)
		if err := t.store.Update(ctx, &copy); err == nil {
			*task = copy
		}
	}

	results, stats, dispatchErr := dispatcher.Dispatch(ctx, clips)

	encoded, err := stage.EncodeResults(results)
	if err != nil {
		return err
	}
	task.ResultsJSON = encoded
	task.SegmentsTotal = stats.Total
	task.SegmentsSucceeded = stats.Succeeded
	task.SegmentsEmpty = stats.Empty
	task.SegmentsFailed = stats.Failed

	if dispatchErr != nil {
		return fmt.Errorf("transcription interrupted: %w", dispatchErr)
	}
	if stats.AllFailed() {
		return services.Wrap(services.ErrTransient, "transcribing", "dispatch",
			fmt.Sprintf("all %d segments failed", stats.Total), nil)
	}

	message := fmt.Sprintf("Transcribed %d/%d segments", stats.Succeeded+stats.Empty, stats.Total)
	task.SetProgress("Transcribing", message, queue.BasePercent(queue.StatusTranscribed))
	pub.Progress("Transcribing", queue.BasePercent(queue.StatusTranscribed), message)

	t.logger.Info("transcription finished",
		logging.String(logging.FieldTaskID, task.TaskID),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("empty", stats.Empty),
		logging.Int("failed", stats.Failed),
	)
	return nil
}

// HealthCheck validates the default back-end configuration.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	if _, err := t.registry.Resolve(""); err != nil {
		return stage.Unhealthy("transcribing", err.Error())
	}
	return stage.Healthy("transcribing")
}

var _ stage.Handler = (*Transcriber)(nil)
