package main

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"scribe/internal/progress"
)

// batchProgress renders one bar covering every task in a submission. Each
// task contributes 100 units; hub events move the bar by percent deltas.
type batchProgress struct {
	bar *progressbar.ProgressBar

	mu   sync.Mutex
	seen map[string]float64
	wg   sync.WaitGroup
}

func newBatchProgress(enabled bool, tasks int) *batchProgress {
	if !enabled || tasks <= 0 {
		return nil
	}
	bar := progressbar.NewOptions64(
		int64(tasks)*100,
		progressbar.OptionSetDescription("transcribing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &batchProgress{bar: bar, seen: make(map[string]float64)}
}

// watch consumes one task's event stream until the hub closes it.
func (p *batchProgress) watch(taskID string, sub *progress.Subscription) {
	if p == nil {
		go drain(sub)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for event := range sub.Events() {
			if event.Type == progress.EventProgress || event.Type == progress.EventCompletion {
				p.advance(event.TaskID, event.Percent)
			}
		}
		// The stream closes once the task is terminal; settle its share of
		// the bar.
		p.advance(taskID, 100)
	}()
}

func (p *batchProgress) advance(taskID string, percent float64) {
	if percent < 0 {
		return
	}
	if percent > 100 {
		percent = 100
	}
	p.mu.Lock()
	last := p.seen[taskID]
	delta := percent - last
	if delta > 0 {
		p.seen[taskID] = percent
	}
	p.mu.Unlock()
	if delta > 0 {
		_ = p.bar.Add64(int64(delta))
	}
}

// finish waits for the watchers and clears the bar.
func (p *batchProgress) finish() {
	if p == nil {
		return
	}
	p.wg.Wait()
	_ = p.bar.Finish()
}

func drain(sub *progress.Subscription) {
	for range sub.Events() {
	}
}
