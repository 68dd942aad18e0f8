package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/BrandonDHaskell/Registrar/server/internal/config"
	"github.com/BrandonDHaskell/Registrar/server/internal/db"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/fault"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/notify"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store/memory"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store/postgres"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store/sqlite"
)

// backends is everything main composes services from.  close releases
// them in reverse order of acquisition.
type backends struct {
	records  store.RecordStore
	queue    store.NotificationStore
	notifier notify.Notifier
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger *log.Logger) (*backends, error) {
	b := &backends{}
	ok := false
	defer func() {
		if !ok {
			b.close()
		}
	}()

	if err := openStores(ctx, cfg, logger, b); err != nil {
		return nil, err
	}

	// Fault injection sits in front of whichever backend was chosen.  Seeds
	// differ per policy so store and notifier failures stay independent.
	b.records = store.WithFaults(b.records, fault.Rate(cfg.StoreFailureRate, cfg.FaultSeed))

	n, err := openNotifier(cfg, logger, b)
	if err != nil {
		return nil, err
	}
	b.notifier = n

	ok = true
	return b, nil
}

func openStores(ctx context.Context, cfg config.Config, logger *log.Logger, b *backends) error {
	if cfg.Store == "memory" {
		records := memory.New()
		b.records = records
		b.queue = memory.NewNotificationStore()
		logger.Printf("store: memory")
		return seed(cfg, logger, func() error { return seedMemory(ctx, records) })
	}

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() { _ = conn.Close() })

	writer := db.NewWorker(conn)
	b.closers = append(b.closers, writer.Close)

	// The notification queue always lives in sqlite; postgres only takes
	// over the records.
	b.queue = sqlite.NewNotificationStore(conn, writer)

	if cfg.Store == "postgres" {
		pg, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		b.closers = append(b.closers, pg.Close)
		b.records = pg
		logger.Printf("store: postgres (queue: sqlite %s)", cfg.DBPath)
		return nil
	}

	b.records = sqlite.NewRecordStore(conn, writer)
	if err := seed(cfg, logger, func() error { return db.SeedDev(ctx, conn) }); err != nil {
		return err
	}
	logger.Printf("store: sqlite %s", cfg.DBPath)
	return nil
}

// seed runs fn when seed_dev is on in the dev env.
func seed(cfg config.Config, logger *log.Logger, fn func() error) error {
	if !cfg.SeedDev {
		return nil
	}
	if cfg.Env != "dev" {
		logger.Printf("seed_dev ignored outside dev")
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	logger.Printf("dev records seeded")
	return nil
}

func seedMemory(ctx context.Context, records *memory.Store) error {
	dev, err := db.DevEntities()
	if err != nil {
		return err
	}
	for _, e := range dev {
		if err := records.Upsert(ctx, e); err != nil {
			return fmt.Errorf("seed record %s: %w", e.ID, err)
		}
	}
	return nil
}

func openNotifier(cfg config.Config, logger *log.Logger, b *backends) (notify.Notifier, error) {
	switch cfg.Notifier {
	case "noop":
		return notify.Noop{}, nil
	case "redis":
		r := notify.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.RedisChannel)
		b.closers = append(b.closers, func() { _ = r.Close() })
		logger.Printf("notifier: redis %s channel=%s", cfg.RedisAddr, cfg.RedisChannel)
		return r, nil
	case "kafka":
		k, err := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, k.Close)
		logger.Printf("notifier: kafka %v topic=%s", cfg.KafkaBrokers, cfg.KafkaTopic)
		return k, nil
	}

	logger.Printf("notifier: simulated (failure=%.2f reconnect=%.2f)", cfg.NotifyFailureRate, cfg.ReconnectSuccessRate)
	return notify.NewSimulated(notify.SimulatedConfig{
		Failure:          fault.Rate(cfg.NotifyFailureRate, cfg.FaultSeed+1),
		ReconnectFailure: fault.Rate(1-cfg.ReconnectSuccessRate, cfg.FaultSeed+2),
	}, logger), nil
}
