package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	appschedule "wanderlust/internal/app/schedule"
)

// AsynqScheduler enqueues jobs on a cron expression through Redis so that only one
// instance of a multi-replica deployment runs each tick.
type AsynqScheduler struct {
	Redis    asynq.RedisConnOpt
	Cron     string
	Queue    string
	Timeout  time.Duration
	Logger   *slog.Logger
	Location *time.Location
}

func (s *AsynqScheduler) Start(ctx context.Context, jobs ...appschedule.Job) error {
	if s.Redis == nil {
		return errors.New("schedule: asynq redis options required")
	}
	queue := s.queue()
	logger := s.logger()

	scheduler := asynq.NewScheduler(s.Redis, &asynq.SchedulerOpts{
		Location: s.Location,
		LogLevel: asynq.WarnLevel,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
				logger.Warn("scheduled task enqueue failed", "error", err)
			}
		},
	})
	mux := asynq.NewServeMux()
	for _, job := range jobs {
		task := asynq.NewTask(job.Name, nil)
		if _, err := scheduler.Register(s.cron(), task, asynq.Queue(queue), asynq.Unique(s.timeout()), asynq.MaxRetry(3)); err != nil {
			return fmt.Errorf("schedule: register %s: %w", job.Name, err)
		}
		mux.HandleFunc(job.Name, handlerFor(job, logger))
	}

	srv := asynq.NewServer(s.Redis, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{queue: 1},
		LogLevel:    asynq.WarnLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("scheduled task failed", "task", task.Type(), "error", err)
		}),
	})
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("schedule: start asynq server: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		return fmt.Errorf("schedule: start asynq scheduler: %w", err)
	}
	logger.Info("asynq scheduler started", "cron", s.cron(), "queue", queue, "jobs", len(jobs))

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	return ctx.Err()
}

func handlerFor(job appschedule.Job, logger *slog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, _ *asynq.Task) error {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", job.Name, err)
		}
		logger.Debug("scheduled job done", "job", job.Name, "duration", time.Since(start))
		return nil
	}
}

func (s *AsynqScheduler) cron() string {
	if s.Cron == "" {
		return "@hourly"
	}
	return s.Cron
}

func (s *AsynqScheduler) queue() string {
	if s.Queue == "" {
		return "maintenance"
	}
	return s.Queue
}

func (s *AsynqScheduler) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 5 * time.Minute
	}
	return s.Timeout
}

func (s *AsynqScheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

var _ appschedule.Scheduler = (*AsynqScheduler)(nil)
