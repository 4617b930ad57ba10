package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/opr/internal/health"
	"github.com/vladislavdragonenkov/opr/internal/storage/bolt"
	"github.com/vladislavdragonenkov/opr/internal/storage/memory"
	"github.com/vladislavdragonenkov/opr/internal/storage/postgres"
	"github.com/vladislavdragonenkov/opr/internal/storage/redis"
)

const storagePingTimeout = 2 * time.Second

// runtimeDependencies собирает зависимости, выбранные по конфигурации.
type runtimeDependencies struct {
	driver         string
	repo           domain.OrderRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies инициализирует хранилище по cfg.StorageDriver.
// Для memory closeFn остаётся nil, остальным драйверам нужен Close.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory order storage")
		return runtimeDependencies{
			driver: StorageDriverMemory,
			repo:   memory.NewOrderRepository(),
			storageChecker: healthcheck.NewSimpleChecker("memory", func() error {
				return nil
			}),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres storage driver requires OPR_POSTGRES_DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("using postgres order storage")
		return runtimeDependencies{
			driver:         StorageDriverPostgres,
			repo:           postgres.NewOrderRepository(store),
			storageChecker: healthcheck.NewPingChecker("postgres", storagePingTimeout, store.Ping),
			closeFn:        store.Close,
		}, nil

	case StorageDriverBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open bolt store: %w", err)
		}
		logger.WithField("path", cfg.BoltPath).Info("using bolt order storage")
		return runtimeDependencies{
			driver:         StorageDriverBolt,
			repo:           bolt.NewOrderRepository(store),
			storageChecker: healthcheck.NewSimpleChecker("bolt", store.Ping),
			closeFn:        store.Close,
		}, nil

	case StorageDriverRedis:
		if cfg.RedisAddr == "" {
			return runtimeDependencies{}, fmt.Errorf("redis storage driver requires OPR_REDIS_ADDR")
		}
		store, err := redis.Open(ctx, redis.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open redis store: %w", err)
		}
		logger.WithField("addr", cfg.RedisAddr).Info("using redis order storage")
		return runtimeDependencies{
			driver: StorageDriverRedis,
			// nil tracer: репозиторий берёт глобальный провайдер,
			// настроенный в SetupTracing до инициализации хранилища.
			repo:           redis.NewOrderRepository(store, nil),
			storageChecker: healthcheck.NewPingChecker("redis", storagePingTimeout, store.Ping),
			closeFn:        store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

// closeStorage закрывает хранилище, если драйвер этого требует.
func closeStorage(deps runtimeDependencies, logger *log.Entry) {
	if deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("storage close with error")
	} else {
		logger.WithField("driver", deps.driver).Info("storage closed")
	}
}
