package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appschedule "wanderlust/internal/app/schedule"
)

func TestTickerRunsJobsUntilCancelled(t *testing.T) {
	var runs, failures atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	jobs := []appschedule.Job{
		{Name: "count", Run: func(context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return nil
		}},
		{Name: "broken", Run: func(context.Context) error {
			failures.Add(1)
			return errors.New("boom")
		}},
	}

	done := make(chan error, 1)
	go func() { done <- (&Ticker{Interval: 5 * time.Millisecond, RunAtStart: true}).Start(ctx, jobs...) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
	assert.GreaterOrEqual(t, failures.Load(), int32(2))
}

func TestAsynqSchedulerDefaults(t *testing.T) {
	s := &AsynqScheduler{}
	assert.Equal(t, "@hourly", s.cron())
	assert.Equal(t, "maintenance", s.queue())
	assert.Equal(t, 5*time.Minute, s.timeout())
	assert.Error(t, s.Start(context.Background()))
}
