package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDB       string `env:"MONGO_DB" envDefault:"wanderlust"`

	KafkaBrokers       []string        `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix   string          `env:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID       string          `env:"KAFKA_GROUP_ID" envDefault:"wanderlust-notifications"`
	IdempotencyTTL     time.Duration   `env:"IDEMP_TTL" envDefault:"168h"`
	OutboxPollInterval time.Duration   `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	RetryBackoff       []time.Duration `env:"RETRY_BACKOFF" envSeparator:"," envDefault:"1s,5s,30s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepCron     string        `env:"SWEEP_CRON" envDefault:"@hourly"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"wanderlust-images"`
	S3UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`

	GeocoderURL       string `env:"GEOCODER_URL"`
	GeocoderUserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"wanderlust/1.0"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PasswordCost    int           `env:"PASSWORD_COST" envDefault:"10"`
	AdminUsernames  []string      `env:"ADMIN_USERNAMES" envSeparator:","`
	DefaultCurrency string        `env:"DEFAULT_CURRENCY" envDefault:"USD"`
	// ExcludeUnapprovedReviews keeps unmoderated reviews out of averages and public lists.
	ExcludeUnapprovedReviews bool `env:"REVIEWS_EXCLUDE_UNAPPROVED" envDefault:"false"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	ListingFixtures string `env:"LISTINGS_FIXTURES"`
}

// Load parses configuration from the current environment. A .env file in the
// working directory, when present, fills variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.AdminUsernames = compact(cfg.AdminUsernames)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI is required for the mongo storage driver")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.PasswordCost < bcrypt.MinCost || c.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("config: PASSWORD_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// KafkaEnabled reports whether the outbox relay and consumers should run.
func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c Config) RedisEnabled() bool { return c.RedisAddr != "" }

func (c Config) S3Enabled() bool { return c.S3Endpoint != "" }

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
