package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	pending []*EventDocument
	sent    []string
	failed  map[string]time.Time
}

func (q *fakeQueue) Claim(context.Context, string) (*EventDocument, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	doc := q.pending[0]
	q.pending = q.pending[1:]
	return doc, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id string, next time.Time, _ string) error {
	if q.failed == nil {
		q.failed = map[string]time.Time{}
	}
	q.failed[id] = next
	return nil
}

type mockProducer struct{ mock.Mock }

func (m *mockProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	args := m.Called(topic, key, payload, headers)
	return args.Error(0)
}

func event(id, name string) *EventDocument {
	return &EventDocument{
		ID:         id,
		Name:       name,
		Aggregate:  "b-1",
		Payload:    []byte(`{"booking_id":"b-1"}`),
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Headers:    map[string]string{"aggregate_type": "booking"},
	}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	queue := &fakeQueue{pending: []*EventDocument{event("e-1", "booking.confirmed")}}
	producer := &mockProducer{}
	var published []byte
	producer.On("Publish", "wl.booking.events.v1", "b-1", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil).Once()

	w := &Worker{Store: queue, Producer: producer, TopicPrefix: "wl.", ID: "relay-1"}
	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"e-1"}, queue.sent)
	producer.AssertExpectations(t)

	var ce CloudEvent
	require.NoError(t, json.Unmarshal(published, &ce))
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.Equal(t, "e-1", ce.ID)
	assert.Equal(t, "booking.confirmed.v1", ce.Type)
	assert.Equal(t, "app://wanderlust", ce.Source)
	assert.JSONEq(t, `{"booking_id":"b-1"}`, string(ce.Data))
}

func TestDrainSchedulesRetryOnPublishFailure(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	queue := &fakeQueue{pending: []*EventDocument{event("e-1", "booking.cancelled"), event("e-2", "listing.created")}}
	producer := &mockProducer{}
	producer.On("Publish", "booking.events.v1", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	producer.On("Publish", "listing.events.v1", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := &Worker{Store: queue, Producer: producer, Backoff: []time.Duration{time.Second, time.Minute}, now: func() time.Time { return now }}
	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"e-2"}, queue.sent)
	assert.Equal(t, now.Add(time.Second), queue.failed["e-1"])
}

func TestNextRetryClampsToLastBackoff(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}, now: func() time.Time { return now }}
	assert.Equal(t, now.Add(time.Minute), w.nextRetry(7))
	w.Backoff = nil
	assert.Equal(t, now.Add(5*time.Second), w.nextRetry(0))
}

func TestRunRequiresDependencies(t *testing.T) {
	err := (&Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrWorkerNotConfigured)
}
