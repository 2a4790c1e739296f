package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/pkg/httpserver"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/notify"
	"github.com/dmitrymomot/sublife/pkg/pg"
	"github.com/dmitrymomot/sublife/pkg/redis"
)

// deps holds the process-wide resources shared by the commands.
type deps struct {
	log     *slog.Logger
	catalog *catalog.StaticCatalog
	store   eventstore.Store
	pub     notify.Publisher
	checks  []httpserver.Check
	closers []io.Closer
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (c *cli) buildDeps(ctx context.Context) (_ *deps, err error) {
	log, err := c.cfg.logger()
	if err != nil {
		return nil, err
	}
	logger.SetAsDefault(log)
	d := &deps{log: log}
	defer func() {
		if err != nil {
			_ = d.Close()
		}
	}()

	d.catalog, err = catalog.LoadFile(c.cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "catalog loaded", logger.Count(len(d.catalog.Plans())), slog.String("file", c.cfg.CatalogFile))

	if err := c.buildStore(ctx, d); err != nil {
		return nil, err
	}
	if err := c.buildPublisher(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *cli) connectPostgres(ctx context.Context) (*pgxpool.Pool, pg.Config, error) {
	pgCfg, err := loadPostgresConfig(c.envFiles)
	if err != nil {
		return nil, pg.Config{}, err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, pg.Config{}, err
	}
	return pool, pgCfg, nil
}

func (c *cli) buildStore(ctx context.Context, d *deps) error {
	if c.cfg.Store != storePostgres {
		d.log.WarnContext(ctx, "using in-memory event store; data is lost on exit")
		d.store = eventstore.NewMemoryStore()
		return nil
	}

	pool, pgCfg, err := c.connectPostgres(ctx)
	if err != nil {
		return err
	}
	d.closers = append(d.closers, closerFunc(func() error { pool.Close(); return nil }))

	if c.cfg.AutoMigrate {
		pgCfg.MigrationsPath = eventstore.MigrationsDir
		if err := pg.Migrate(ctx, pool, pgCfg, eventstore.Migrations, d.log); err != nil {
			return err
		}
	}

	d.store = eventstore.NewPostgresStore(pool)
	d.checks = append(d.checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})
	return nil
}

// buildPublisher fans out to every enabled sink. Each sink retries on its
// own so one slow sink does not re-deliver to the others.
func (c *cli) buildPublisher(ctx context.Context, d *deps) error {
	backoff := notify.ExponentialBackoff(c.cfg.PublishRetryBase, c.cfg.PublishRetries, c.cfg.PublishRetryMax)
	var sinks []notify.Publisher

	if c.cfg.Kafka.Enabled() {
		producer, err := notify.NewKafkaProducer(c.cfg.Kafka)
		if err != nil {
			return err
		}
		kafka := notify.NewKafkaPublisher(producer, c.cfg.Kafka.Topic)
		d.closers = append(d.closers, kafka)
		sinks = append(sinks, notify.WithRetry(kafka, backoff))
		d.log.InfoContext(ctx, "kafka notifications enabled", slog.String("topic", c.cfg.Kafka.Topic))
	}

	if c.cfg.RedisStream {
		client, err := redis.Connect(ctx, c.cfg.Redis)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, client)
		d.checks = append(d.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
		sinks = append(sinks, notify.WithRetry(notify.NewRedisStreamPublisher(client, c.cfg.Stream), backoff))
		d.log.InfoContext(ctx, "redis stream notifications enabled", slog.String("stream", c.cfg.Stream.Stream))
	}

	if c.cfg.Webhook.Enabled() {
		webhook, err := notify.NewWebhookPublisher(c.cfg.Webhook)
		if err != nil {
			return err
		}
		sinks = append(sinks, webhook)
		d.log.InfoContext(ctx, "webhook notifications enabled", slog.String("url", c.cfg.Webhook.URL))
	}

	switch len(sinks) {
	case 0:
		d.log.WarnContext(ctx, "no notification sink configured; transitions are only logged")
		d.pub = notify.PublisherFunc(func(ctx context.Context, n notify.Notification) error {
			d.log.InfoContext(ctx, "transition",
				logger.SubscriptionID(n.SubscriptionID),
				logger.EventID(n.EventID),
				logger.Kind(n.Kind.String()),
				logger.Plan(n.PlanName),
			)
			return nil
		})
	case 1:
		d.pub = sinks[0]
	default:
		d.pub = notify.Fanout(sinks...)
	}
	return nil
}
