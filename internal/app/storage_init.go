package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/placeorder/internal/health"
	"github.com/vladislavdragonenkov/placeorder/internal/storage/memory"
	"github.com/vladislavdragonenkov/placeorder/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/placeorder/internal/storage/redis"
)

// runtimeDependencies — хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	transactions domain.TransactionRepository
	actions      domain.ActionRepository
	sellers      domain.SellerRepository
	paymentNos   domain.PaymentNoRepository
	tokens       domain.TokenRepository
	timeline     domain.TimelineRepository
	idempotency  domain.IdempotencyRepository

	checkers map[string]healthcheck.Checker
	closers  []func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}
	d.closers = nil
}

// initRuntimeDependencies поднимает хранилища: основное (memory|postgres) и Redis, если задан адрес.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{checkers: make(map[string]healthcheck.Checker)}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		deps.transactions = memory.NewTransactionRepository()
		deps.actions = memory.NewActionRepository()
		deps.sellers = memory.NewSellerRepository(cfg.Sellers...)
		deps.paymentNos = memory.NewPaymentNoRepository()
		deps.timeline = memory.NewTimelineRepository()
		deps.idempotency = memory.NewIdempotencyRepository()
		logger.WithField("sellers", len(cfg.Sellers)).Info("using in-memory storage")
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				deps.close(logger)
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}

		deps.transactions = postgres.NewTransactionRepository(store)
		deps.actions = postgres.NewActionRepository(store)
		deps.sellers = postgres.NewSellerRepository(store)
		deps.paymentNos = postgres.NewPaymentNoRepository(store)
		deps.timeline = postgres.NewTimelineRepository(store)
		deps.idempotency = postgres.NewIdempotencyRepository(store)
		deps.checkers["postgres"] = healthcheck.NewPingChecker("postgres", store.Ping)
		for _, seller := range cfg.Sellers {
			if err := deps.sellers.Save(ctx, seller); err != nil {
				deps.close(logger)
				return nil, fmt.Errorf("seed seller %s: %w", seller.Identifier, err)
			}
		}
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("using postgres storage")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	deps.tokens = memory.NewTokenRepository(cfg.PrintTokenTTL)

	if cfg.RedisAddr != "" {
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			deps.close(logger)
			return nil, err
		}
		deps.closers = append(deps.closers, client.Close)

		// Номера оплаты и токены печати общие для всех экземпляров сервиса.
		deps.paymentNos = redisstore.NewPaymentNoRepository(client)
		deps.tokens = redisstore.NewTokenRepository(client, cfg.PrintTokenTTL)
		deps.checkers["redis"] = healthcheck.NewPingChecker("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.WithField("addr", cfg.RedisAddr).Info("redis payment numbers and print tokens enabled")
	}

	return deps, nil
}
