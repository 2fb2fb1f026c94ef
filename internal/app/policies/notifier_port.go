package policies

import "context"

// Notifier delivers guest/host notifications. Delivery itself lives outside this service.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
