package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/app/repositories/mongostore"
	"github.com/naturelovers/storefront/app/repositories/sqlstore"
	"github.com/naturelovers/storefront/config"
	"github.com/naturelovers/storefront/pkg/broker"
	"github.com/naturelovers/storefront/pkg/cache"
	"github.com/naturelovers/storefront/pkg/database"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/mail"
	"github.com/naturelovers/storefront/pkg/migration"
	"github.com/naturelovers/storefront/pkg/notification"
	"github.com/naturelovers/storefront/pkg/orm"
	"github.com/naturelovers/storefront/pkg/queue"
	"github.com/naturelovers/storefront/pkg/telemetry"
)

// OpenStore connects the backend selected by STORE_DRIVER.
func OpenStore(ctx context.Context) (repositories.Store, error) {
	if config.StoreDriver() == "mongo" {
		client, err := database.ConnectMongo(ctx, config.MongoURI())
		if err != nil {
			return nil, err
		}
		s := mongostore.New(client, config.MongoDatabase(), config.MongoTransactions())
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(context.Background())
			return nil, fmt.Errorf("kernel: mongo indexes: %w", err)
		}
		return s, nil
	}

	db, err := database.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := orm.Instrument(db); err != nil {
		return nil, fmt.Errorf("kernel: instrument gorm: %w", err)
	}
	return sqlstore.New(db), nil
}

// autoMigrate applies pending SQL migrations when DB_AUTO_MIGRATE is on.
func autoMigrate(store repositories.Store) error {
	s, ok := store.(*sqlstore.Store)
	if !ok || !config.Bool("DB_AUTO_MIGRATE", true) {
		return nil
	}
	applied, err := migration.New(s.DB()).Run()
	if err != nil && !errors.Is(err, migration.ErrNoMigrations) {
		return fmt.Errorf("kernel: migrate: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("kernel: migrations applied", "count", len(applied))
	}
	return nil
}

// openCache dials Redis, or returns the memory cache for CACHE_DRIVER=memory.
// Outside production an unreachable Redis falls back to memory.
func openCache(ctx context.Context) (cache.Cache, error) {
	if config.CacheDriver() == "memory" {
		return cache.NewMemory(), nil
	}
	c, err := cache.Connect(ctx)
	if err == nil {
		return c, nil
	}
	if config.IsProduction() {
		return nil, err
	}
	logger.Warn("kernel: redis unavailable, using memory cache", "error", err)
	return cache.NewMemory(), nil
}

func queueDriver(c cache.Cache) (queue.Driver, error) {
	if config.QueueDriver() != "redis" {
		return queue.NewMemoryDriver(), nil
	}
	r, ok := c.(*cache.Redis)
	if !ok {
		return nil, fmt.Errorf("kernel: QUEUE_DRIVER=redis needs the redis cache")
	}
	return queue.NewRedisDriver(r.Client()), nil
}

// Boot loads config and builds the App with every external connection.
// Close it to flush traces and logs and release the connections.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var closers []func(context.Context) error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](context.Background())
		}
		return nil, err
	}

	if uri := config.LogMongoURI(); uri != "" {
		flush, err := logger.EnableMongo(uri, config.MongoDatabase())
		if err != nil {
			logger.Warn("kernel: mongo log sink disabled", "error", err)
		} else {
			closers = append(closers, func(context.Context) error { flush(); return nil })
		}
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Service:  "storefront",
		Exporter: config.OTELExporter(),
		Endpoint: config.OTLPEndpoint(),
	})
	if err != nil {
		return fail(err)
	}
	closers = append(closers, shutdown)

	store, err := OpenStore(ctx)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, store.Close)
	if err := autoMigrate(store); err != nil {
		return fail(err)
	}

	c, err := openCache(ctx)
	if err != nil {
		return fail(err)
	}
	if r, ok := c.(*cache.Redis); ok {
		closers = append(closers, func(context.Context) error { return r.Client().Close() })
	}

	qd, err := queueDriver(c)
	if err != nil {
		return fail(err)
	}

	var pubs []broker.Publisher
	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		k, err := broker.NewKafka(brokers, config.KafkaTopic())
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func(context.Context) error { k.Close(); return nil })
		pubs = append(pubs, k)
	}

	mailer := mail.FromConfig()
	a := New(Deps{
		Store:       store,
		Cache:       c,
		Mailer:      mailer,
		Notifier:    notification.FromConfig(mailer),
		QueueDriver: qd,
		Publishers:  pubs,
		SelfPingURL: config.SelfPingURL(),
		Origins:     config.CORSOrigins(),
		RateLimit:   config.RateLimit(),
	})
	for _, fn := range closers {
		a.OnClose(fn)
	}
	logger.Info("kernel: booted", "store", config.StoreDriver(), "env", config.AppEnv(), "kafka", len(pubs) > 0)
	return a, nil
}
