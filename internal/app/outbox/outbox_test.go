package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain/shared/events"
)

type pinged struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

func (e pinged) EventName() string     { return "listing.pinged" }
func (e pinged) AggregateID() string   { return e.ID }
func (e pinged) OccurredAt() time.Time { return e.At }

type sliceOutbox struct{ records []EventRecord }

func (o *sliceOutbox) Add(_ context.Context, rec EventRecord) error {
	o.records = append(o.records, rec)
	return nil
}
func (o *sliceOutbox) Flush(context.Context) error { return nil }

type aggregate struct{ events.EventRecorder }

func TestJSONEventEncoder(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}.Encode(pinged{ID: "l1", At: at})
	require.NoError(t, err)

	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "listing.pinged", rec.Name)
	assert.Equal(t, "l1", rec.Aggregate)
	assert.Equal(t, "listing", rec.Headers["aggregate_type"])
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Payload, &body))
	assert.Equal(t, "l1", body["id"])
}

func TestRecorderDrainsSources(t *testing.T) {
	box := &sliceOutbox{}
	rec := &Recorder{Outbox: box}
	a := &aggregate{}
	a.Record(pinged{ID: "a"})
	a.Record(pinged{ID: "b"})

	require.NoError(t, rec.Record(context.Background(), a))
	assert.Len(t, box.records, 2)
	assert.Empty(t, a.PendingEvents())
}

func TestNilRecorderDiscards(t *testing.T) {
	var rec *Recorder
	a := &aggregate{}
	a.Record(pinged{ID: "a"})
	assert.NoError(t, rec.Record(context.Background(), a))
	assert.Empty(t, a.PendingEvents())
}
