package observability

import (
	"testing"
	"time"
)

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	for i := 1; i <= 3; i++ {
		n := i
		bus.Subscribe(EventLogEntry, func(Event) { order = append(order, n) })
	}

	bus.Emit(Event{Type: EventLogEntry})

	if len(order) != 3 {
		t.Fatalf("delivered to %d listeners, want 3", len(order))
	}
	for i, n := range order {
		if n != i+1 {
			t.Fatalf("delivery order = %v", order)
		}
	}
}

func TestEmitOnlyMatchingType(t *testing.T) {
	bus := NewBus()

	var got []EventType
	bus.Subscribe(EventLogEntry, func(e Event) { got = append(got, e.Type) })
	bus.Subscribe(EventReportGenerated, func(e Event) { got = append(got, e.Type) })

	bus.Emit(Event{Type: EventReportGenerated})

	if len(got) != 1 || got[0] != EventReportGenerated {
		t.Errorf("delivered = %v", got)
	}
}

func TestEmitStampsZeroTimestamp(t *testing.T) {
	bus := NewBus()

	var received Event
	bus.Subscribe(EventConfigUpdated, func(e Event) { received = e })

	bus.Emit(Event{Type: EventConfigUpdated})
	if received.Timestamp.IsZero() {
		t.Error("zero timestamp not stamped")
	}

	explicit := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Emit(Event{Type: EventConfigUpdated, Timestamp: explicit})
	if !received.Timestamp.Equal(explicit) {
		t.Errorf("explicit timestamp replaced: %s", received.Timestamp)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	var calls []string
	bus.Subscribe(EventLogEntry, func(Event) { calls = append(calls, "first") })
	id := bus.Subscribe(EventLogEntry, func(Event) { calls = append(calls, "second") })
	bus.Subscribe(EventLogEntry, func(Event) { calls = append(calls, "third") })

	bus.Unsubscribe(EventLogEntry, id)
	bus.Emit(Event{Type: EventLogEntry})

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "third" {
		t.Errorf("calls = %v", calls)
	}
	if got := bus.ListenerCount(EventLogEntry); got != 2 {
		t.Errorf("ListenerCount = %d, want 2", got)
	}

	// Unknown ids and types are no-ops.
	bus.Unsubscribe(EventLogEntry, 999)
	bus.Unsubscribe(EventMetricRecorded, id)
	if got := bus.ListenerCount(EventLogEntry); got != 2 {
		t.Errorf("ListenerCount after no-op removals = %d, want 2", got)
	}
}

func TestPanickingListenerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	var reached bool
	bus.Subscribe(EventHealthCheckCompleted, func(Event) { panic("listener bug") })
	bus.Subscribe(EventHealthCheckCompleted, func(Event) { reached = true })

	bus.Emit(Event{Type: EventHealthCheckCompleted})

	if !reached {
		t.Error("listener after the panicking one never ran")
	}
}

func TestListenerCountPerType(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(EventLogEntry, func(Event) {})
	bus.Subscribe(EventLogEntry, func(Event) {})
	bus.Subscribe(EventMetricRecorded, func(Event) {})

	if got := bus.ListenerCount(EventLogEntry); got != 2 {
		t.Errorf("log_entry listeners = %d, want 2", got)
	}
	if got := bus.ListenerCount(EventMetricRecorded); got != 1 {
		t.Errorf("metric_recorded listeners = %d, want 1", got)
	}
	if got := bus.ListenerCount(EventReportGenerated); got != 0 {
		t.Errorf("report_generated listeners = %d, want 0", got)
	}
}

func TestClearRemovesAllListeners(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(EventLogEntry, func(Event) { calls++ })
	bus.Subscribe(EventConfigUpdated, func(Event) { calls++ })

	bus.Clear()

	bus.Emit(Event{Type: EventLogEntry})
	bus.Emit(Event{Type: EventConfigUpdated})

	if calls != 0 {
		t.Errorf("cleared listeners fired %d time(s)", calls)
	}
	if got := bus.ListenerCount(EventLogEntry); got != 0 {
		t.Errorf("log_entry listeners after clear = %d, want 0", got)
	}
}
