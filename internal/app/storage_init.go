package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
	"github.com/vladislavdragonenkov/salesorders/internal/storage/memory"
	"github.com/vladislavdragonenkov/salesorders/internal/storage/postgres"
)

// initStorage создаёт репозиторий заказов по драйверу из конфигурации.
// Для postgres возвращает также Store для health-проверок и закрытия
// подключения при остановке.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (domain.OrderRepository, *postgres.Store, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory order storage")
		return memory.NewOrderRepository(), nil, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}
		logger.Info("using postgres order storage")
		return postgres.NewOrderRepository(store), store, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
