package transcription_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scribe/internal/asr"
	"scribe/internal/transcription"
)

// fakePlugin returns canned text per clip path with optional latency and
// failures.
type fakePlugin struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	latency   func() time.Duration
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
	calls     atomic.Int32
}

func (f *fakePlugin) Name() string             { return "fake" }
func (f *fakePlugin) Describe() asr.Descriptor { return asr.Descriptor{Name: "fake"} }
func (f *fakePlugin) Validate() error          { return nil }

func (f *fakePlugin) Transcribe(ctx context.Context, clipPath string, opts asr.Options) (string, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if current <= max || f.maxSeen.CompareAndSwap(max, current) {
			break
		}
	}

	if f.latency != nil {
		select {
		case <-time.After(f.latency()):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[clipPath]; ok {
		return "", err
	}
	return f.responses[clipPath], nil
}

func makeClips(n int) []transcription.Clip {
	clips := make([]transcription.Clip, n)
	for i := range clips {
		clips[i] = transcription.Clip{
			Index: i,
			Path:  fmt.Sprintf("clip-%03d.wav", i),
			Start: time.Duration(i) * time.Second,
			End:   time.Duration(i+1) * time.Second,
		}
	}
	return clips
}

func TestDispatchKeepsClipOrderUnderRandomLatency(t *testing.T) {
	clips := makeClips(20)
	plugin := &fakePlugin{
		responses: make(map[string]string),
		latency: func() time.Duration {
			return time.Duration(rand.Intn(20)) * time.Millisecond
		},
	}
	for i, clip := range clips {
		plugin.responses[clip.Path] = fmt.Sprintf("text %d", i)
	}

	d := transcription.NewDispatcher(plugin, 8, asr.Options{}, nil)
	results, stats, err := d.Dispatch(context.Background(), clips)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if stats.Succeeded != 20 {
		t.Fatalf("stats = %+v", stats)
	}
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d has index %d", i, r.Index)
		}
		if want := fmt.Sprintf("text %d", i); r.Text != want {
			t.Fatalf("result %d text = %q, want %q", i, r.Text, want)
		}
	}
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	clips := makeClips(30)
	plugin := &fakePlugin{
		responses: make(map[string]string),
		latency:   func() time.Duration { return 10 * time.Millisecond },
	}
	for _, clip := range clips {
		plugin.responses[clip.Path] = "x"
	}

	d := transcription.NewDispatcher(plugin, 4, asr.Options{}, nil)
	if _, _, err := d.Dispatch(context.Background(), clips); err != nil {
		t.Fatal(err)
	}
	if max := plugin.maxSeen.Load(); max > 4 {
		t.Fatalf("observed %d concurrent requests, limit is 4", max)
	}
}

func TestDispatchClassifiesOutcomes(t *testing.T) {
	clips := makeClips(4)
	plugin := &fakePlugin{
		responses: map[string]string{
			clips[0].Path: "spoken words",
			clips[1].Path: "   \n  ",
		},
		failures: map[string]error{
			clips[3].Path: errors.New("backend exploded"),
		},
	}

	d := transcription.NewDispatcher(plugin, 2, asr.Options{}, nil)
	results, stats, err := d.Dispatch(context.Background(), clips)
	if err != nil {
		t.Fatal(err)
	}

	if results[0].Outcome != transcription.OutcomeSucceeded || results[0].Text != "spoken words" {
		t.Fatalf("result 0 = %+v", results[0])
	}
	if results[1].Outcome != transcription.OutcomeEmpty {
		t.Fatalf("result 1 = %+v", results[1])
	}
	if results[2].Outcome != transcription.OutcomeEmpty {
		t.Fatalf("result 2 = %+v", results[2])
	}
	if results[3].Outcome != transcription.OutcomeFailed || !strings.Contains(results[3].Error, "exploded") {
		t.Fatalf("result 3 = %+v", results[3])
	}
	if stats.Succeeded != 1 || stats.Empty != 2 || stats.Failed != 1 || stats.Total != 4 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDispatchAllFailed(t *testing.T) {
	clips := makeClips(2)
	plugin := &fakePlugin{
		failures: map[string]error{
			clips[0].Path: errors.New("down"),
			clips[1].Path: errors.New("down"),
		},
	}

	d := transcription.NewDispatcher(plugin, 2, asr.Options{}, nil)
	_, stats, err := d.Dispatch(context.Background(), clips)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.AllFailed() {
		t.Fatalf("expected AllFailed, stats = %+v", stats)
	}
}

func TestDispatchCancellationDrainsAndMarksRemainder(t *testing.T) {
	clips := makeClips(10)
	plugin := &fakePlugin{
		responses: make(map[string]string),
		latency:   func() time.Duration { return 50 * time.Millisecond },
	}
	for _, clip := range clips {
		plugin.responses[clip.Path] = "x"
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	d := transcription.NewDispatcher(plugin, 2, asr.Options{}, nil)
	results, stats, err := d.Dispatch(ctx, clips)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("expected a slot per clip, got %d", len(results))
	}
	if stats.Failed == 0 {
		t.Fatalf("expected failures after cancellation, stats = %+v", stats)
	}
	for i, r := range results {
		if r.Outcome == "" {
			t.Fatalf("result %d has no outcome", i)
		}
	}
	// Nothing should remain in flight once Dispatch returns.
	if plugin.inFlight.Load() != 0 {
		t.Fatal("requests still in flight after Dispatch returned")
	}
}

func TestDispatchReportsProgress(t *testing.T) {
	clips := makeClips(5)
	plugin := &fakePlugin{responses: make(map[string]string)}
	for _, clip := range clips {
		plugin.responses[clip.Path] = "x"
	}

	var mu sync.Mutex
	var seen []int
	d := transcription.NewDispatcher(plugin, 2, asr.Options{}, nil)
	d.OnProgress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 5 {
			t.Errorf("total = %d", total)
		}
		seen = append(seen, done)
	}

	if _, _, err := d.Dispatch(context.Background(), clips); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 5 {
		t.Fatalf("progress callbacks = %d, want 5", len(seen))
	}
}

func TestDispatchSerializesProgressCallbacks(t *testing.T) {
	clips := makeClips(40)
	plugin := &fakePlugin{
		responses: make(map[string]string),
		latency: func() time.Duration {
			return time.Duration(rand.Intn(5)) * time.Millisecond
		},
	}
	for _, clip := range clips {
		plugin.responses[clip.Path] = "x"
	}

	// The callback mutates shared state without its own lock; the
	// dispatcher guarantees serialized, strictly ascending invocations.
	var seen []int
	d := transcription.NewDispatcher(plugin, 16, asr.Options{}, nil)
	d.OnProgress = func(done, total int) {
		seen = append(seen, done)
	}

	if _, _, err := d.Dispatch(context.Background(), clips); err != nil {
		t.Fatal(err)
	}
	if len(seen) != len(clips) {
		t.Fatalf("callbacks = %d, want %d", len(seen), len(clips))
	}
	for i, done := range seen {
		if done != i+1 {
			t.Fatalf("callback %d reported done = %d", i, done)
		}
	}
}

func TestDispatchFailsSegmentsWithoutClips(t *testing.T) {
	clips := makeClips(3)
	clips[1].Path = ""
	plugin := &fakePlugin{responses: map[string]string{
		clips[0].Path: "first",
		clips[2].Path: "third",
	}}

	d := transcription.NewDispatcher(plugin, 2, asr.Options{}, nil)
	results, stats, err := d.Dispatch(context.Background(), clips)
	if err != nil {
		t.Fatal(err)
	}
	if results[1].Outcome != transcription.OutcomeFailed {
		t.Fatalf("result 1 = %+v", results[1])
	}
	if !strings.Contains(results[1].Error, "not exported") {
		t.Fatalf("result 1 error = %q", results[1].Error)
	}
	if stats.Succeeded != 2 || stats.Failed != 1 || stats.Total != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if plugin.calls.Load() != 2 {
		t.Fatalf("back-end calls = %d, want 2", plugin.calls.Load())
	}
}

func TestDispatchEmptyClipList(t *testing.T) {
	plugin := &fakePlugin{}
	d := transcription.NewDispatcher(plugin, 4, asr.Options{}, nil)
	results, stats, err := d.Dispatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 || stats.Total != 0 {
		t.Fatalf("results = %v, stats = %+v", results, stats)
	}
	if plugin.calls.Load() != 0 {
		t.Fatal("expected no back-end calls")
	}
}
