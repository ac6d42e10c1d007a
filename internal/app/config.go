package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса заказов.
type Config struct {
	// HTTPAddr — адрес REST API.
	HTTPAddr string
	// MetricsAddr — адрес метрик и health-проб.
	MetricsAddr string
	// StorageDriver — memory или postgres.
	StorageDriver string
	// PostgresDSN используется при драйвере postgres.
	PostgresDSN string
	// PostgresAutoMigrate применяет миграции при старте.
	PostgresAutoMigrate bool
	// KafkaBrokers — список брокеров; пустой список отключает публикацию событий.
	KafkaBrokers []string
	// ProcessInterval — период фонового процессора заказов.
	ProcessInterval time.Duration
}

// DefaultConfig возвращает конфигурацию для локальной разработки:
// in-memory хранилище без Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		ProcessInterval:     30 * time.Second,
	}
}

// LoadConfig читает конфигурацию из окружения с префиксом ORDERS_,
// предварительно подхватив .env, если он есть.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.HTTPAddr = getenv("ORDERS_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = getenv("ORDERS_METRICS_ADDR", cfg.MetricsAddr)
	cfg.StorageDriver = strings.ToLower(getenv("ORDERS_STORAGE_DRIVER", cfg.StorageDriver))
	cfg.PostgresDSN = getenv("ORDERS_POSTGRES_DSN", cfg.PostgresDSN)

	if raw := strings.TrimSpace(os.Getenv("ORDERS_POSTGRES_AUTO_MIGRATE")); raw != "" {
		autoMigrate, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ORDERS_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = autoMigrate
	}

	if raw := strings.TrimSpace(os.Getenv("ORDERS_KAFKA_BROKERS")); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ORDERS_PROCESS_INTERVAL")); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse ORDERS_PROCESS_INTERVAL: %w", err)
		}
		cfg.ProcessInterval = interval
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres storage requires ORDERS_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.ProcessInterval <= 0 {
		return fmt.Errorf("process interval must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
