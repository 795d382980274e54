package progress

import (
	"sync"
	"time"
)

// backlogSize bounds how many undelivered events a subscriber may hold.
const backlogSize = 64

// Hub routes task events to live subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*Subscription]struct{}
	closed      bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[*Subscription]struct{})}
}

// Subscription is one listener attached to a task's event stream.
type Subscription struct {
	hub    *Hub
	taskID string
	ch     chan Event
	once   sync.Once
}

// Events returns the channel delivering this subscription's events. The
// channel is closed when the subscription is closed or the task's stream
// ends.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Subscribe attaches a listener to a task's event stream. Events published
// before the subscription are not replayed.
func (h *Hub) Subscribe(taskID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		taskID: taskID,
		ch:     make(chan Event, backlogSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		// Deliver nothing; callers see an immediately closed channel.
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	set, ok := h.subscribers[taskID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subscribers[taskID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Publish delivers an event to every subscriber of the event's task. It
// never blocks: when a subscriber's backlog is full the oldest undelivered
// event is dropped to make room.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subscribers[event.TaskID] {
		for {
			select {
			case sub.ch <- event:
			default:
				// Backlog full; drop the oldest event and retry once.
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// CloseTask ends the stream for one task, closing every attached
// subscription. Typically called after publishing the completion event.
func (h *Hub) CloseTask(taskID string) {
	h.mu.Lock()
	subs := h.subscribers[taskID]
	delete(h.subscribers, taskID)
	h.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Close shuts the hub down, closing all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	all := h.subscribers
	h.subscribers = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, subs := range all {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sub.taskID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, sub.taskID)
	}
}

// SubscriberCount reports how many listeners a task currently has.
func (h *Hub) SubscriberCount(taskID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[taskID])
}
