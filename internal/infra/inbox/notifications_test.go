package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/infra/outbox"
)

type memoryInbox struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memoryInbox) Seen(_ context.Context, id string) (bool, error) {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	was := m.seen[id]
	m.seen[id] = true
	return was, nil
}

func (m *memoryInbox) Forget(_ context.Context, id string) error {
	delete(m.seen, id)
	m.forgotten = append(m.forgotten, id)
	return nil
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, to, template string, data any) error {
	return m.Called(to, template).Error(0)
}

func message(t *testing.T, id, typ string) *sarama.ConsumerMessage {
	t.Helper()
	body, err := json.Marshal(outbox.CloudEvent{
		SpecVersion: "1.0",
		ID:          id,
		Type:        typ,
		Data:        json.RawMessage(`{"booking_id":"b-1","guest_id":"guest-1","range":{}}`),
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "booking.events.v1", Value: body}
}

func TestConfirmedEventNotifiesGuestOnce(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Send", "guest-1", TemplateBookingConfirmed).Return(nil).Once()
	h := &BookingNotifications{Inbox: &memoryInbox{}, Notifier: notifier}

	msg := message(t, "evt-1", "booking.confirmed.v1")
	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	notifier.AssertExpectations(t)
}

func TestIgnoredEventTypes(t *testing.T) {
	notifier := &mockNotifier{}
	h := &BookingNotifications{Inbox: &memoryInbox{}, Notifier: notifier}
	require.NoError(t, h.Handle(context.Background(), message(t, "evt-2", "booking.requested.v1")))
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")}))
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestFailedDeliveryIsRetryable(t *testing.T) {
	box := &memoryInbox{}
	notifier := &mockNotifier{}
	notifier.On("Send", "guest-1", TemplateBookingCancelled).Return(errors.New("smtp down")).Once()
	notifier.On("Send", "guest-1", TemplateBookingCancelled).Return(nil).Once()
	h := &BookingNotifications{Inbox: box, Notifier: notifier}

	msg := message(t, "evt-3", "booking.cancelled.v1")
	require.Error(t, h.Handle(context.Background(), msg))
	assert.Equal(t, []string{"evt-3"}, box.forgotten)
	require.NoError(t, h.Handle(context.Background(), msg))
	notifier.AssertExpectations(t)
}
