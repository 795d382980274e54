package progress

import "time"

// EventType classifies a progress event.
type EventType string

const (
	EventProgress   EventType = "progress"
	EventLog        EventType = "log"
	EventError      EventType = "error"
	EventCompletion EventType = "completion"
)

// Log event levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Event is a single update emitted while a task is processed.
type Event struct {
	TaskID  string    `json:"task_id"`
	Type    EventType `json:"type"`
	Stage   string    `json:"stage,omitempty"`
	Percent float64   `json:"percent,omitempty"`
	Message string    `json:"message,omitempty"`
	// Level qualifies log events; other event types leave it empty.
	Level string `json:"level,omitempty"`
	// Details carries structured context for log events, such as
	// per-segment counters.
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
