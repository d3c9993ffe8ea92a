// Package events is an in-process publish/subscribe bus for run progress.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event types emitted while resolving a workspace.
const (
	EventRunStarted         = "run.started"
	EventRunCompleted       = "run.completed"
	EventResolutionStarted  = "resolution.started"
	EventResolutionComplete = "resolution.completed"
	EventResolutionFailed   = "resolution.failed"
	EventBranchMaterialized = "branch.materialized"

	// Wildcard subscribes to every event type.
	Wildcard = "*"
)

const subscriberBuffer = 100

// Event represents an event in the system
type Event struct {
	Type      string         `json:"type"`
	RunID     string         `json:"run_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType, runID string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Publisher is the side of the bus producers depend on.
type Publisher interface {
	Publish(event Event)
}

// Subscriber is a channel that receives events
type Subscriber chan Event

// Bus manages event subscriptions and publishing
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	dropped     atomic.Uint64
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]Subscriber),
	}
}

// Subscribe registers a subscriber for eventType, or every type with
// Wildcard. The returned function unsubscribes and closes the channel; it is
// safe to call more than once.
func (b *Bus) Subscribe(eventType string) (Subscriber, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(Subscriber, subscriberBuffer)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.subscribers[eventType]
			for i, sub := range subs {
				if sub == ch {
					b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}

	return ch, unsubscribe
}

// Publish delivers event to the subscribers of its type and to wildcard
// subscribers. It never blocks: a full subscriber misses the event.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.deliver(b.subscribers[event.Type], event)
	if event.Type != Wildcard {
		b.deliver(b.subscribers[Wildcard], event)
	}
}

func (b *Bus) deliver(subs []Subscriber, event Event) {
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// MarshalEvent converts an event to JSON
func MarshalEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}
