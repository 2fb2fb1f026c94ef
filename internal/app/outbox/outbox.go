package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"wanderlust/internal/domain/shared/events"
)

// EventRecord is the serialized form of a domain event waiting for relay.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{"aggregate_type": AggregateType(ev.EventName())},
	}, nil
}

// AggregateType is the event name prefix, e.g. "booking" for "booking.confirmed".
func AggregateType(name string) string {
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Recorder bundles an outbox with its encoder so services can drain aggregates in one call.
type Recorder struct {
	Outbox  Outbox
	Encoder EventEncoder
	Logger  *slog.Logger
}

// Record drains the sources into the outbox. A nil recorder discards events.
func (r *Recorder) Record(ctx context.Context, sources ...events.Source) error {
	evs := events.Collect(sources...)
	if r == nil || r.Outbox == nil {
		return nil
	}
	return RecordDomainEvents(ctx, r.Outbox, r.Encoder, evs)
}

// RecordBestEffort is used after a state change is already durable; failures are logged.
func (r *Recorder) RecordBestEffort(ctx context.Context, sources ...events.Source) {
	if err := r.Record(ctx, sources...); err != nil && r.Logger != nil {
		r.Logger.Warn("outbox append failed", "error", err)
	}
}
