package observability

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType names a class of lifecycle events emitted by the manager.
type EventType string

const (
	EventLogEntry             EventType = "log_entry"
	EventMetricRecorded       EventType = "metric_recorded"
	EventHealthCheckCompleted EventType = "health_check_completed"
	EventReportGenerated      EventType = "report_generated"
	EventConfigUpdated        EventType = "config_updated"
)

// Event is one emitted occurrence. Payloads are shallow maps; listeners must
// not mutate them.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Listener receives events synchronously, in registration order.
type Listener func(Event)

type subscription struct {
	id       int64
	listener Listener
}

// Bus fans events out to per-type listener lists. Listeners run synchronously
// on the emitting goroutine; a panicking listener is recovered and the
// remaining listeners still run.
type Bus struct {
	mu        sync.Mutex
	nextID    int64
	listeners map[EventType][]subscription
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[EventType][]subscription)}
}

// Subscribe registers a listener for one event type and returns its
// subscription id for later removal.
func (b *Bus) Subscribe(eventType EventType, listener Listener) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[eventType] = append(b.listeners[eventType], subscription{
		id:       b.nextID,
		listener: listener,
	})
	return b.nextID
}

// Unsubscribe removes a listener by its subscription id. Unknown ids are a
// no-op.
func (b *Bus) Unsubscribe(eventType EventType, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.listeners[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to every listener registered for its type, in
// registration order. Listener panics are contained per listener.
func (b *Bus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	subs := make([]subscription, len(b.listeners[event.Type]))
	copy(subs, b.listeners[event.Type])
	b.mu.Unlock()

	for _, sub := range subs {
		b.invoke(sub, event)
	}
}

func (b *Bus) invoke(sub subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "observability: listener for %s panicked: %v\n", event.Type, r)
		}
	}()
	sub.listener(event)
}

// Clear drops every listener for every event type.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[EventType][]subscription)
}

// ListenerCount reports how many listeners are registered for a type.
func (b *Bus) ListenerCount(eventType EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[eventType])
}
