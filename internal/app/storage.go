package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// runtimeDependencies: репозитории выбранного хранилища и его health-проверка.
type runtimeDependencies struct {
	offers        domain.OfferRepository
	subscriptions domain.SubscriptionRepository
	purchases     domain.PurchaseRepository
	outbox        domain.OutboxRepository
	journal       domain.JournalRepository
	idempotency   domain.IdempotencyRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			offers:        memory.NewOfferRepository(),
			subscriptions: memory.NewSubscriptionRepository(),
			purchases:     memory.NewPurchaseRepository(),
			outbox:        memory.NewOutboxRepository(),
			journal:       memory.NewJournalRepository(),
			idempotency:   memory.NewIdempotencyRepository(),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedStorageDriver, cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		status, err := store.Status(ctx)
		if err == nil {
			logger.WithFields(log.Fields{
				"version": status.Version,
				"applied": status.Applied,
			}).Info("postgres migrations applied")
		}
	}

	logger.Info("using postgres storage")
	return &runtimeDependencies{
		offers:         postgres.NewOfferRepository(store),
		subscriptions:  postgres.NewSubscriptionRepository(store),
		purchases:      postgres.NewPurchaseRepository(store),
		outbox:         postgres.NewOutboxRepository(store),
		journal:        postgres.NewJournalRepository(store),
		idempotency:    postgres.NewIdempotencyRepository(store),
		storageChecker: healthcheck.NewPingChecker("postgres", store.Ping),
		closeFn:        store.Close,
	}, nil
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
