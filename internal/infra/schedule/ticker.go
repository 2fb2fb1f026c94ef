package schedule

import (
	"context"
	"log/slog"
	"time"

	appschedule "wanderlust/internal/app/schedule"
)

// Ticker runs jobs in process on a fixed interval. It is used when Redis is
// not configured; every replica runs its own sweep, which is safe because the
// jobs are idempotent.
type Ticker struct {
	Interval time.Duration
	// RunAtStart triggers one pass before the first tick.
	RunAtStart bool
	Logger     *slog.Logger
}

func (t *Ticker) Start(ctx context.Context, jobs ...appschedule.Job) error {
	interval := t.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	if t.RunAtStart {
		t.runAll(ctx, jobs)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.runAll(ctx, jobs)
		}
	}
}

func (t *Ticker) runAll(ctx context.Context, jobs []appschedule.Job) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, job := range jobs {
		if err := job.Run(ctx); err != nil {
			logger.Error("scheduled job failed", "job", job.Name, "error", err)
		}
	}
}

var _ appschedule.Scheduler = (*Ticker)(nil)
