package subtitle

import (
	"strings"
	"time"
)

// Entry is one timed line of recognized speech.
type Entry struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// renderable filters out entries with no text and returns the survivors in
// their original order.
func renderable(entries []Entry) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		e.Text = strings.TrimSpace(e.Text)
		kept = append(kept, e)
	}
	return kept
}
