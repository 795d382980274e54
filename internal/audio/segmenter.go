package audio

import (
	"fmt"
	"math"
	"time"

	"scribe/internal/services"
)

const frameDuration = 30 * time.Millisecond

// Threshold bounds for the speech and silence duration knobs, in
// milliseconds. Values outside this range are rejected rather than clamped.
const (
	MinThresholdMs = 100
	MaxThresholdMs = 5000
)

// Segment is a detected speech interval within the source waveform.
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// SegmenterParams tunes the energy-based voice activity detector.
type SegmenterParams struct {
	// MinSpeech drops detected speech runs shorter than this.
	MinSpeech time.Duration
	// MinSilence merges neighboring speech runs separated by less silence
	// than this.
	MinSilence time.Duration
	// ThresholdDBFS is the frame RMS level below which a frame counts as
	// silence. Must be negative.
	ThresholdDBFS float64
}

func (p SegmenterParams) validate() error {
	minT := time.Duration(MinThresholdMs) * time.Millisecond
	maxT := time.Duration(MaxThresholdMs) * time.Millisecond
	if p.MinSpeech < minT || p.MinSpeech > maxT {
		return services.Wrap(services.ErrValidation, "segmenting", "params",
			fmt.Sprintf("min speech %s outside [%dms, %dms]", p.MinSpeech, MinThresholdMs, MaxThresholdMs), nil)
	}
	if p.MinSilence < minT || p.MinSilence > maxT {
		return services.Wrap(services.ErrValidation, "segmenting", "params",
			fmt.Sprintf("min silence %s outside [%dms, %dms]", p.MinSilence, MinThresholdMs, MaxThresholdMs), nil)
	}
	if p.ThresholdDBFS >= 0 {
		return services.Wrap(services.ErrValidation, "segmenting", "params",
			fmt.Sprintf("threshold %.1f dBFS must be negative", p.ThresholdDBFS), nil)
	}
	return nil
}

// Segmenter detects speech intervals by measuring per-frame RMS energy
// against a dBFS threshold. Detection is deterministic for a given waveform
// and parameter set.
type Segmenter struct {
	params SegmenterParams
}

// NewSegmenter validates the parameters and returns a segmenter.
func NewSegmenter(params SegmenterParams) (*Segmenter, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Segmenter{params: params}, nil
}

// Segment scans the waveform and returns the detected speech intervals in
// ascending, non-overlapping order. A waveform with no frames above the
// threshold yields zero segments and no error.
func (s *Segmenter) Segment(w Waveform) ([]Segment, error) {
	if w.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "segmenting", "waveform",
			fmt.Sprintf("sample rate %d", w.SampleRate), nil)
	}
	if len(w.Samples) == 0 {
		return nil, nil
	}

	frameSamples := int(float64(w.SampleRate) * frameDuration.Seconds())
	if frameSamples <= 0 {
		frameSamples = 1
	}

	// Raw speech runs from frame classification.
	var raw []Segment
	var runStart time.Duration
	inSpeech := false

	for offset := 0; offset < len(w.Samples); offset += frameSamples {
		end := offset + frameSamples
		if end > len(w.Samples) {
			end = len(w.Samples)
		}
		frameStart := sampleTime(offset, w.SampleRate)
		frameEnd := sampleTime(end, w.SampleRate)

		speech := rmsDBFS(w.Samples[offset:end]) >= s.params.ThresholdDBFS
		switch {
		case speech && !inSpeech:
			runStart = frameStart
			inSpeech = true
		case !speech && inSpeech:
			raw = append(raw, Segment{Start: runStart, End: frameStart})
			inSpeech = false
		}
		if speech && end == len(w.Samples) {
			raw = append(raw, Segment{Start: runStart, End: frameEnd})
		}
	}

	merged := mergeCloseRuns(raw, s.params.MinSilence)

	segments := make([]Segment, 0, len(merged))
	for _, seg := range merged {
		if seg.Duration() < s.params.MinSpeech {
			continue
		}
		seg.Index = len(segments)
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return nil, nil
	}
	return segments, nil
}

// mergeCloseRuns joins adjacent runs whose separating gap is shorter than
// minSilence. Runs arrive in ascending order and stay that way.
func mergeCloseRuns(runs []Segment, minSilence time.Duration) []Segment {
	if len(runs) == 0 {
		return nil
	}
	merged := []Segment{runs[0]}
	for _, run := range runs[1:] {
		last := &merged[len(merged)-1]
		if run.Start-last.End < minSilence {
			last.End = run.End
			continue
		}
		merged = append(merged, run)
	}
	return merged
}

func sampleTime(index, sampleRate int) time.Duration {
	return time.Duration(float64(index) / float64(sampleRate) * float64(time.Second))
}

// rmsDBFS computes the RMS level of a frame in dBFS. An all-zero frame
// returns -inf so it always classifies as silence.
func rmsDBFS(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}
