package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/config"
	"github.com/dmitrymomot/sublife/pkg/httpserver"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/notify"
	"github.com/dmitrymomot/sublife/pkg/pg"
	"github.com/dmitrymomot/sublife/pkg/redis"
	"github.com/dmitrymomot/sublife/pkg/requestid"
)

const envPrefix = "SUBLIFE_"

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

// Config is the process configuration, read from SUBLIFE_* variables and
// optional .env files.
type Config struct {
	Env         string `env:"ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"sublife"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogFormat   string `env:"LOG_FORMAT"`

	CatalogFile  string `env:"CATALOG_FILE" envDefault:"catalog.yaml"`
	ChangePolicy string `env:"CHANGE_POLICY" envDefault:"default"` // default | skip-trial
	Store        string `env:"STORE" envDefault:"memory"`          // memory | postgres
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	HTTP      httpserver.Config
	Scheduler SchedulerConfig

	PublishRetries   int           `env:"PUBLISH_RETRIES" envDefault:"3"`
	PublishRetryBase time.Duration `env:"PUBLISH_RETRY_BASE" envDefault:"200ms"`
	PublishRetryMax  time.Duration `env:"PUBLISH_RETRY_MAX" envDefault:"5s"`

	Kafka       notify.KafkaConfig
	Webhook     notify.WebhookConfig
	RedisStream bool `env:"REDIS_STREAM_ENABLED" envDefault:"false"`
	Stream      notify.RedisStreamConfig
	Redis       redis.Config
}

type SchedulerConfig struct {
	Workers    int           `env:"SCHEDULER_WORKERS" envDefault:"1"`
	Interval   time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1s"`
	BatchSize  int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"100"`
	ClaimLimit int           `env:"SCHEDULER_CLAIM_LIMIT" envDefault:"50"`
}

func loadConfig(envFiles []string, opts ...config.Option) (Config, error) {
	var cfg Config
	opts = append([]config.Option{config.WithEnvFiles(envFiles...), config.WithPrefix(envPrefix)}, opts...)
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	switch cfg.Store {
	case storeMemory, storePostgres:
	default:
		return Config{}, fmt.Errorf("%w: unknown store %q", config.ErrParsingConfig, cfg.Store)
	}
	if _, err := cfg.changePolicy(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadPostgresConfig is separate because PG_CONN_URL is only required when
// the postgres store is selected.
func loadPostgresConfig(envFiles []string, opts ...config.Option) (pg.Config, error) {
	var cfg pg.Config
	opts = append([]config.Option{config.WithEnvFiles(envFiles...), config.WithPrefix(envPrefix)}, opts...)
	if err := config.Load(&cfg, opts...); err != nil {
		return pg.Config{}, err
	}
	return cfg, nil
}

func (c Config) changePolicy() (catalog.ChangePolicy, error) {
	switch c.ChangePolicy {
	case "", "default":
		return catalog.DefaultChangePolicy, nil
	case "skip-trial":
		return catalog.SkipTrialOnSameBillingPeriod, nil
	default:
		return nil, fmt.Errorf("%w: unknown change policy %q", config.ErrParsingConfig, c.ChangePolicy)
	}
}

func (c Config) logger() (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(c.Env, c.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if c.LogLevel != "" {
		level, err := logger.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}
	if c.LogFormat != "" {
		format, err := logger.ParseFormat(c.LogFormat)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithFormat(format))
	}
	return logger.New(opts...), nil
}
