package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	appschedule "wanderlust/internal/app/schedule"
	"wanderlust/internal/bootstrap"
	"wanderlust/internal/infra/broker/kafka"
	"wanderlust/internal/infra/config"
	mongodb "wanderlust/internal/infra/db/mongo"
	"wanderlust/internal/infra/geocoding"
	"wanderlust/internal/infra/inbox"
	"wanderlust/internal/infra/obs"
	"wanderlust/internal/infra/outbox"
	"wanderlust/internal/infra/schedule"
	"wanderlust/internal/infra/security"
	"wanderlust/internal/infra/storage/memory"
	redisstore "wanderlust/internal/infra/storage/redis"
	"wanderlust/internal/infra/storage/s3"
)

const notificationsConsumer = "notifications"

type application struct {
	core   *bootstrap.Application
	checks map[string]obs.Check

	mongo    *mongodb.Client
	outbox   *outbox.Store
	redis    *goredis.Client
	producer *kafka.Producer

	wg      sync.WaitGroup
	closers []func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}

	storage, err := app.openStorage(ctx, cfg, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}

	opts := bootstrap.Options{
		Storage:                  storage,
		SessionTTL:               cfg.SessionTTL,
		AdminUsernames:           cfg.AdminUsernames,
		DefaultCurrency:          cfg.DefaultCurrency,
		ExcludeUnapprovedReviews: cfg.ExcludeUnapprovedReviews,
		Passwords:                security.BcryptHasher{Cost: cfg.PasswordCost},
		Logger:                   logger,
	}

	if cfg.RedisEnabled() {
		rdb, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.redis = rdb
		app.closers = append(app.closers, rdb.Close)
		app.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		opts.Views = &redisstore.ViewDeduper{Client: rdb}
	}

	if cfg.S3Enabled() {
		images, err := s3.NewImageStore(s3.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, logger.With("component", "images"))
		if err != nil {
			app.close(logger)
			return nil, err
		}
		opts.Images = images
	} else {
		opts.Images = s3.NoopImageStore{}
	}

	if cfg.GeocoderURL != "" {
		opts.Geocoder = geocoding.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent, logger.With("component", "geocoder"))
	}

	app.core, err = bootstrap.Build(opts)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (bootstrap.Storage, error) {
	if cfg.StorageDriver != config.StorageMongo {
		return bootstrap.MemoryStorage(memory.NewStore()), nil
	}
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return bootstrap.Storage{}, err
	}
	a.mongo = client
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Disconnect(ctx)
	})
	a.checks["mongo"] = client.Ping
	if !client.Transactions {
		logger.Warn("mongo deployment has no replica set, units of work run without transactions")
	}
	if err := client.EnsureIndexes(ctx, cfg.IdempotencyTTL); err != nil {
		return bootstrap.Storage{}, err
	}
	a.outbox = outbox.NewStore(client.DB)
	if err := a.outbox.EnsureIndexes(ctx); err != nil {
		return bootstrap.Storage{}, err
	}
	return bootstrap.Storage{
		Units:        client.Factory(),
		Outbox:       a.outbox,
		Availability: mongodb.NewAvailabilityRepository(client.DB),
		Idempotency:  mongodb.NewIdempotencyStore(client.DB),
		Users:        mongodb.NewUserRepository(client.DB),
		Sessions:     mongodb.NewSessionStore(client.DB),
	}, nil
}

// startBackground launches the completion sweep and, with Kafka, the outbox
// relay and the notification consumer.
func (a *application) startBackground(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	sweep := appschedule.CompleteSweepJob(a.core.Commands, logger.With("component", "sweep"))
	var scheduler appschedule.Scheduler = &schedule.Ticker{Interval: cfg.SweepInterval, RunAtStart: true, Logger: logger}
	if a.redis != nil {
		scheduler = &schedule.AsynqScheduler{
			Redis:  asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
			Cron:   cfg.SweepCron,
			Logger: logger,
		}
	}
	a.goRun(logger, "scheduler", func() error { return scheduler.Start(ctx, sweep) })

	if !cfg.KafkaEnabled() {
		return
	}
	if a.outbox == nil {
		logger.Warn("kafka relay needs the mongo storage driver, events stay in process")
		return
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("wanderlust-relay"))
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		return
	}
	a.producer = producer
	a.closers = append(a.closers, producer.Close)

	host, _ := os.Hostname()
	relay := &outbox.Worker{
		Store:       a.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		ID:          fmt.Sprintf("%s-%d", host, os.Getpid()),
		Backoff:     cfg.RetryBackoff,
		Logger:      logger.With("component", "relay"),
	}
	a.goRun(logger, "outbox relay", func() error { return relay.Run(ctx) })

	received := inbox.NewStore(a.mongo.DB, notificationsConsumer)
	if err := received.EnsureIndexes(ctx); err != nil {
		logger.Error("inbox index setup failed", "error", err)
		return
	}
	notifications := &inbox.BookingNotifications{
		Inbox:    received,
		Notifier: inbox.LogNotifier{Logger: logger.With("component", "notifier")},
		Logger:   logger.With("component", "notifications"),
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, notifications, logger.With("component", "consumer"))
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		return
	}
	a.closers = append(a.closers, consumer.Close)
	topic := outbox.TopicFor(cfg.KafkaTopicPrefix, "booking")
	a.goRun(logger, "notification consumer", func() error { return consumer.Run(ctx, []string{topic}) })
}

func (a *application) goRun(logger *slog.Logger, name string, run func() error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := run(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("background task stopped", "task", name, "error", err)
		}
	}()
}

func (a *application) wait() {
	a.wg.Wait()
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
