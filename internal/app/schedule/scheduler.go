// Package schedule describes periodic background work independently of the
// runner that triggers it.
package schedule

import (
	"context"
	"log/slog"

	"wanderlust/internal/app/commands"
	bookingapp "wanderlust/internal/app/handlers/booking"
)

// CompleteSweep is the task name of the booking completion sweep.
const CompleteSweep = "booking:complete_sweep"

// Job is one named periodic task. Run must be safe to repeat.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler triggers jobs until ctx is cancelled.
type Scheduler interface {
	Start(ctx context.Context, jobs ...Job) error
}

// CompleteSweepJob dispatches the completion sweep through the command bus so it
// passes the same logging and outbox flushing as any other write.
func CompleteSweepJob(bus commands.Bus, logger *slog.Logger) Job {
	if logger == nil {
		logger = slog.Default()
	}
	return Job{
		Name: CompleteSweep,
		Run: func(ctx context.Context) error {
			res, err := commands.Dispatch[bookingapp.CompleteDueCommand, *bookingapp.CompleteDueResult](ctx, bus, bookingapp.CompleteDueCommand{})
			if res != nil && res.Completed > 0 {
				logger.InfoContext(ctx, "bookings completed", "count", res.Completed)
			}
			return err
		},
	}
}
