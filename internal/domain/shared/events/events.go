package events

import "time"

// DomainEvent is what aggregates record and the outbox relays.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates to queue events until the caller persists them.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

// Drain returns the queued events and clears the queue.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

// Source is implemented by every aggregate embedding EventRecorder.
type Source interface {
	Drain() []DomainEvent
}

// Collect drains several aggregates preserving order.
func Collect(sources ...Source) []DomainEvent {
	var out []DomainEvent
	for _, src := range sources {
		if src == nil {
			continue
		}
		out = append(out, src.Drain()...)
	}
	return out
}
