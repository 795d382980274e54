package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/audio"
)

// TonePart describes one stretch of a synthetic test waveform.
type TonePart struct {
	Speech   bool
	Duration time.Duration
}

// WriteToneWAV writes a 16 kHz mono WAV alternating tone and silence per the
// provided parts and returns the waveform it encoded.
func WriteToneWAV(t testing.TB, path string, parts ...TonePart) audio.Waveform {
	t.Helper()

	const rate = 16000
	var samples []float64
	for _, p := range parts {
		amp := 0.0
		if p.Speech {
			amp = 0.5
		}
		n := int(p.Duration.Seconds() * rate)
		for i := 0; i < n; i++ {
			samples = append(samples, amp*math.Sin(2*math.Pi*440*float64(i)/rate))
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := audio.WriteMonoWAV(path, samples, rate); err != nil {
		t.Fatalf("write tone wav %s: %v", path, err)
	}
	return audio.Waveform{Samples: samples, SampleRate: rate}
}
