package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "wanderlust/internal/app/outbox"
)

// Outbox buffers records until Flush, which hands them to the logger in place of a broker.
type Outbox struct {
	mu      sync.Mutex
	records []appoutbox.EventRecord
	logger  *slog.Logger
}

func NewOutbox(logger *slog.Logger) *Outbox {
	return &Outbox{logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.mu.Unlock()
	if o.logger == nil {
		return nil
	}
	for _, rec := range pending {
		o.logger.DebugContext(ctx, "domain event", "name", rec.Name, "aggregate", rec.Aggregate, "id", rec.ID)
	}
	return nil
}

// Pending returns the names of buffered events, oldest first.
func (o *Outbox) Pending() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.records))
	for _, rec := range o.records {
		names = append(names, rec.Name)
	}
	return names
}

var _ appoutbox.Outbox = (*Outbox)(nil)
