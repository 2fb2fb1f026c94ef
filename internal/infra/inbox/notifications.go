package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"wanderlust/internal/app/policies"
	"wanderlust/internal/infra/outbox"
)

const (
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingCancelled = "booking_cancelled"
)

// Deduper is the inbox contract used by consumers.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// BookingNotifications turns booking events into guest notifications.
type BookingNotifications struct {
	Inbox    Deduper
	Notifier policies.Notifier
	Logger   *slog.Logger
}

type bookingEventData struct {
	BookingID   string          `json:"booking_id"`
	ListingID   string          `json:"listing_id"`
	GuestID     string          `json:"guest_id"`
	Range       json.RawMessage `json:"range"`
	Total       json.RawMessage `json:"total,omitempty"`
	CancelledBy string          `json:"cancelled_by,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

func (h *BookingNotifications) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt outbox.CloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger().Warn("dropping malformed booking event", "offset", msg.Offset, "error", err)
		return nil
	}
	template := templateFor(evt.Type)
	if template == "" {
		return nil
	}
	seen, err := h.Inbox.Seen(ctx, evt.ID)
	if err != nil {
		return err
	}
	if seen {
		h.logger().Debug("duplicate booking event skipped", "id", evt.ID)
		return nil
	}
	var data bookingEventData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		h.logger().Warn("dropping booking event with bad data", "id", evt.ID, "error", err)
		return nil
	}
	if err := h.Notifier.Send(ctx, data.GuestID, template, data); err != nil {
		_ = h.Inbox.Forget(ctx, evt.ID)
		return fmt.Errorf("inbox: notify %s: %w", data.BookingID, err)
	}
	return nil
}

func templateFor(eventType string) string {
	switch eventType {
	case "booking.confirmed.v1":
		return TemplateBookingConfirmed
	case "booking.cancelled.v1":
		return TemplateBookingCancelled
	default:
		return ""
	}
}

func (h *BookingNotifications) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LogNotifier writes notifications to the log; delivery lives in another system.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification queued", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
