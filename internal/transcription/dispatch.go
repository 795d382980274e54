package transcription

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"scribe/internal/asr"
	"scribe/internal/logging"
)

// Outcome classifies a single segment's transcription result.
type Outcome string

const (
	// OutcomeSucceeded means the back-end returned non-empty text.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeEmpty means the back-end answered but recognized no speech.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means the request errored or timed out.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome for one clip, positionally stable with the input.
type Result struct {
	Index   int           `json:"index"`
	Start   time.Duration `json:"start"`
	End     time.Duration `json:"end"`
	Text    string        `json:"text,omitempty"`
	Outcome Outcome       `json:"outcome"`
	Error   string        `json:"error,omitempty"`
}

// Stats aggregates outcomes across a dispatch.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
}

// AllFailed reports whether every segment failed. Callers treat this as a
// task-level failure since nothing is left to assemble.
func (s Stats) AllFailed() bool {
	return s.Total > 0 && s.Failed == s.Total
}

// Clip is one exported segment to transcribe.
type Clip struct {
	Index int
	Path  string
	Start time.Duration
	End   time.Duration
}

// Dispatcher runs clip transcriptions against a back-end with a bounded
// number of in-flight requests.
type Dispatcher struct {
	plugin      asr.Plugin
	concurrency int
	options     asr.Options
	logger      *slog.Logger

	// OnProgress, when set, is invoked after each clip settles with the
	// number of settled clips and the total. Invocations are serialized and
	// done is strictly ascending across calls.
	OnProgress func(done, total int)
}

// NewDispatcher returns a dispatcher for the given back-end. Concurrency
// values below one are raised to one.
func NewDispatcher(plugin asr.Plugin, concurrency int, options asr.Options, logger *slog.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		plugin:      plugin,
		concurrency: concurrency,
		options:     options,
		logger:      logger,
	}
}

// Dispatch transcribes all clips and returns results in clip order together
// with aggregate stats. Per-clip errors are captured in the result slots;
// the returned error is non-nil only for context cancellation, after all
// in-flight requests have drained.
func (d *Dispatcher) Dispatch(ctx context.Context, clips []Clip) ([]Result, Stats, error) {
	results := make([]Result, len(clips))
	for i, clip := range clips {
		results[i] = Result{Index: clip.Index, Start: clip.Start, End: clip.End}
	}
	if len(clips) == 0 {
		return results, Stats{}, ctx.Err()
	}

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for i, clip := range clips {
		if ctx.Err() != nil {
			// Stop launching; remaining slots become failures below.
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(slot int, clip Clip) {
			defer wg.Done()
			defer func() { <-sem }()
			// The callback runs under the mutex: invocations are serialized
			// and the settled count only ever ascends, so callers may mutate
			// shared state and publish percentages without their own locking.
			defer func() {
				mu.Lock()
				done++
				if d.OnProgress != nil {
					d.OnProgress(done, len(clips))
				}
				mu.Unlock()
			}()

			// A segment whose clip export failed upstream keeps its slot and
			// degrades to failed here instead of reaching the back-end.
			if strings.TrimSpace(clip.Path) == "" {
				results[slot].Outcome = OutcomeFailed
				results[slot].Error = "clip was not exported"
				d.logger.Warn("segment has no exported clip",
					logging.Int("segment", clip.Index))
				return
			}

			text, err := d.plugin.Transcribe(ctx, clip.Path, d.options)
			switch {
			case err != nil:
				results[slot].Outcome = OutcomeFailed
				results[slot].Error = err.Error()
				d.logger.Warn("segment transcription failed",
					logging.Int("segment", clip.Index),
					logging.Error(err))
			case strings.TrimSpace(text) == "":
				results[slot].Outcome = OutcomeEmpty
			default:
				results[slot].Outcome = OutcomeSucceeded
				results[slot].Text = strings.TrimSpace(text)
			}
		}(i, clip)
	}

	wg.Wait()

	// Slots never launched due to cancellation fail with the context error.
	for i := range results {
		if results[i].Outcome == "" {
			results[i].Outcome = OutcomeFailed
			if ctx.Err() != nil {
				results[i].Error = ctx.Err().Error()
			} else {
				results[i].Error = "not dispatched"
			}
		}
	}

	stats := Stats{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeSucceeded:
			stats.Succeeded++
		case OutcomeEmpty:
			stats.Empty++
		case OutcomeFailed:
			stats.Failed++
		}
	}

	return results, stats, ctx.Err()
}
