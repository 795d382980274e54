package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Clip is an exported segment WAV on disk.
type Clip struct {
	Index int
	Path  string
	Start time.Duration
	End   time.Duration
}

// ExportResult reports per-clip export outcomes. A clip that failed to write
// carries its error; the remaining clips are still exported.
type ExportResult struct {
	Clips  []Clip
	Failed []ExportFailure
}

// ExportFailure records one segment that could not be written. The window
// bounds are kept so the caller can preserve the segment's timing slot.
type ExportFailure struct {
	Index int
	Start time.Duration
	End   time.Duration
	Err   error
}

// Exporter writes per-segment 16-bit mono WAV clips into a task directory.
type Exporter struct {
	// MaxClip splits intervals longer than this into multiple clips.
	// Zero disables splitting.
	MaxClip time.Duration
}

// Export writes one clip per segment (more when a segment exceeds MaxClip)
// into dir, named segment_0001.wav onward in segment order. A failure to
// write an individual clip is recorded and export continues.
func (e *Exporter) Export(dir string, w Waveform, segments []Segment) (ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("create clip directory: %w", err)
	}

	var result ExportResult
	clipIndex := 0

	for _, seg := range segments {
		for _, window := range splitInterval(seg.Start, seg.End, e.MaxClip) {
			clipIndex++
			name := fmt.Sprintf("segment_%04d.wav", clipIndex)
			path := filepath.Join(dir, name)

			startSample := sampleIndex(window.start, w.SampleRate)
			endSample := sampleIndex(window.end, w.SampleRate)
			if endSample > len(w.Samples) {
				endSample = len(w.Samples)
			}
			if startSample >= endSample {
				continue
			}

			if err := WriteMonoWAV(path, w.Samples[startSample:endSample], w.SampleRate); err != nil {
				result.Failed = append(result.Failed, ExportFailure{
					Index: clipIndex - 1,
					Start: window.start,
					End:   window.end,
					Err:   err,
				})
				continue
			}
			result.Clips = append(result.Clips, Clip{
				Index: clipIndex - 1,
				Path:  path,
				Start: window.start,
				End:   window.end,
			})
		}
	}

	return result, nil
}

type window struct {
	start, end time.Duration
}

func splitInterval(start, end, maxClip time.Duration) []window {
	if maxClip <= 0 || end-start <= maxClip {
		return []window{{start: start, end: end}}
	}
	var windows []window
	for cursor := start; cursor < end; cursor += maxClip {
		stop := cursor + maxClip
		if stop > end {
			stop = end
		}
		windows = append(windows, window{start: cursor, end: stop})
	}
	return windows
}

func sampleIndex(t time.Duration, sampleRate int) int {
	return int(t.Seconds() * float64(sampleRate))
}
