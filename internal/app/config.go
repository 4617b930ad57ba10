package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Поддерживаемые драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverBolt     = "bolt"
	StorageDriverRedis    = "redis"
)

// Config описывает настройки запуска приложения. Все значения читаются
// из переменных окружения OPR_* с дефолтами для локального запуска.
type Config struct {
	MetricsAddr string `env:"OPR_METRICS_ADDR" env-default:":9090"`
	LogLevel    string `env:"OPR_LOG_LEVEL" env-default:"info"`

	StorageDriver       string `env:"OPR_STORAGE_DRIVER" env-default:"memory"`
	PostgresDSN         string `env:"OPR_POSTGRES_DSN" env-default:""`
	PostgresAutoMigrate bool   `env:"OPR_POSTGRES_AUTO_MIGRATE" env-default:"true"`
	BoltPath            string `env:"OPR_BOLT_PATH" env-default:"opr-orders.db"`
	RedisAddr           string `env:"OPR_REDIS_ADDR" env-default:""`
	RedisPassword       string `env:"OPR_REDIS_PASSWORD" env-default:""`
	RedisDB             int    `env:"OPR_REDIS_DB" env-default:"0"`
	RedisKeyPrefix      string `env:"OPR_REDIS_KEY_PREFIX" env-default:"opr:orders:"`

	KafkaBrokers       string `env:"OPR_KAFKA_BROKERS" env-default:""`
	KafkaGroupID       string `env:"OPR_KAFKA_GROUP_ID" env-default:"opr-placement"`
	KafkaIncomingTopic string `env:"OPR_KAFKA_INCOMING_TOPIC" env-default:"opr.orders.incoming"`
	KafkaEventsTopic   string `env:"OPR_KAFKA_EVENTS_TOPIC" env-default:"opr.orders.events"`
	ConsumerMaxRetries int    `env:"OPR_CONSUMER_MAX_RETRIES" env-default:"3"`

	PlaceRetryAttempts     int           `env:"OPR_PLACE_RETRY_ATTEMPTS" env-default:"3"`
	PlaceRetryInitialDelay time.Duration `env:"OPR_PLACE_RETRY_INITIAL_DELAY" env-default:"100ms"`
	PlaceRetryMaxDelay     time.Duration `env:"OPR_PLACE_RETRY_MAX_DELAY" env-default:"5s"`
	BreakerMaxFailures     int           `env:"OPR_BREAKER_MAX_FAILURES" env-default:"5"`
	BreakerResetTimeout    time.Duration `env:"OPR_BREAKER_RESET_TIMEOUT" env-default:"30s"`

	JaegerEndpoint string `env:"OPR_JAEGER_ENDPOINT" env-default:""`
	DryRun         bool   `env:"OPR_DRY_RUN" env-default:"false"`
}

// DefaultConfig возвращает конфигурацию локального запуска без переменных
// окружения: memory-хранилище, без Kafka и экспорта трейсов.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:            ":9090",
		LogLevel:               "info",
		StorageDriver:          StorageDriverMemory,
		PostgresAutoMigrate:    true,
		BoltPath:               "opr-orders.db",
		RedisKeyPrefix:         "opr:orders:",
		KafkaGroupID:           "opr-placement",
		KafkaIncomingTopic:     "opr.orders.incoming",
		KafkaEventsTopic:       "opr.orders.events",
		ConsumerMaxRetries:     3,
		PlaceRetryAttempts:     3,
		PlaceRetryInitialDelay: 100 * time.Millisecond,
		PlaceRetryMaxDelay:     5 * time.Second,
		BreakerMaxFailures:     5,
		BreakerResetTimeout:    30 * time.Second,
	}
}

// LoadConfig читает конфигурацию из окружения и нормализует значения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.KafkaBrokers = strings.TrimSpace(cfg.KafkaBrokers)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	return cfg, nil
}
