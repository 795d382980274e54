package progress

import "time"

// Publisher emits events for a single task. A nil Publisher discards all
// events, so stages can publish unconditionally.
type Publisher struct {
	hub    *Hub
	taskID string
}

// NewPublisher returns a task-scoped publisher backed by the hub.
func NewPublisher(hub *Hub, taskID string) *Publisher {
	if hub == nil {
		return nil
	}
	return &Publisher{hub: hub, taskID: taskID}
}

// Progress publishes a progress event with the current stage and percent.
func (p *Publisher) Progress(stage string, percent float64, message string) {
	p.publish(Event{Type: EventProgress, Stage: stage, Percent: percent, Message: message})
}

// Log publishes a leveled log event with optional structured details.
func (p *Publisher) Log(level, message string, details map[string]string) {
	p.publish(Event{Type: EventLog, Level: level, Message: message, Details: details})
}

// Error publishes a non-fatal error event.
func (p *Publisher) Error(stage, message string) {
	p.publish(Event{Type: EventError, Stage: stage, Message: message})
}

// Completed publishes the terminal completion event and closes the task's
// stream.
func (p *Publisher) Completed(message string) {
	p.publish(Event{Type: EventCompletion, Percent: 100, Message: message})
	if p != nil {
		p.hub.CloseTask(p.taskID)
	}
}

// Failed publishes a terminal error event and closes the task's stream.
func (p *Publisher) Failed(stage, message string) {
	p.publish(Event{Type: EventError, Stage: stage, Message: message})
	if p != nil {
		p.hub.CloseTask(p.taskID)
	}
}

func (p *Publisher) publish(event Event) {
	if p == nil {
		return
	}
	event.TaskID = p.taskID
	event.Timestamp = time.Now().UTC()
	p.hub.Publish(event)
}
