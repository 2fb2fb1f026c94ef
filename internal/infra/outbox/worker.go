package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "wanderlust/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Queue is the claim/ack side of the outbox consumed by the relay.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Worker relays outbox events to the broker as CloudEvents.
type Worker struct {
	Store       Queue
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
	// BatchSize caps how many events one tick relays.
	BatchSize int

	now func() time.Time
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger().Warn("outbox relay tick failed", "error", err)
			}
		}
	}
}

// Drain relays up to BatchSize due events and returns how many were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		ok, more, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
		if !more {
			break
		}
	}
	return sent, nil
}

func (w *Worker) processOnce(ctx context.Context) (sent bool, more bool, err error) {
	doc, err := w.Store.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return false, false, err
	}
	topic := w.topicFor(doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err != nil {
		w.fail(ctx, doc, err)
		return false, true, nil
	}
	if err := w.Producer.Publish(ctx, topic, doc.Aggregate, payload, headers); err != nil {
		w.fail(ctx, doc, err)
		return false, true, nil
	}
	if err := w.Store.MarkSent(ctx, doc.ID); err != nil {
		return false, false, err
	}
	w.logger().Debug("outbox event relayed", "event", doc.Name, "topic", topic, "id", doc.ID)
	return true, true, nil
}

func (w *Worker) fail(ctx context.Context, doc *EventDocument, cause error) {
	w.logger().Warn("outbox relay failed", "event", doc.Name, "id", doc.ID, "attempts", doc.Attempts+1, "error", cause)
	if err := w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), cause.Error()); err != nil {
		w.logger().Error("outbox mark failed", "id", doc.ID, "error", err)
	}
}

// CloudEvent is the envelope published for every domain event.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) formatPayload(doc *EventDocument) ([]byte, map[string]string, error) {
	if !json.Valid(doc.Payload) {
		return nil, nil, ErrInvalidPayload
	}
	evt := CloudEvent{
		SpecVersion:     "1.0",
		ID:              doc.ID,
		Type:            doc.Name + ".v1",
		Source:          w.source(),
		Subject:         doc.Aggregate,
		Time:            doc.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     doc.Headers["traceparent"],
		Data:            doc.Payload,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce_type":      evt.Type,
		"ce_id":        evt.ID,
	}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, appoutbox.AggregateType(name))
}

// TopicFor builds "<prefix><aggregate>.events.v1".
func TopicFor(prefix, aggregate string) string {
	return prefix + aggregate + ".events.v1"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := w.clock()
	if attempts < len(w.Backoff) {
		return now.Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return now.Add(w.Backoff[len(w.Backoff)-1])
	}
	return now.Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://wanderlust"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

var (
	ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")
	ErrInvalidPayload      = errors.New("outbox: event payload is not valid json")
)
