package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/orderlife/internal/messaging/kafka"
)

// StorageDriver выбирает реализацию хранилища заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска сервиса. Значения читаются из окружения.
type Config struct {
	HTTPAddr    string `env:"ORDERS_HTTP_ADDR" env-default:":8080" validate:"required"`
	MetricsAddr string `env:"ORDERS_METRICS_ADDR" env-default:":9090" validate:"required"`

	StorageDriver       StorageDriver `env:"ORDERS_STORAGE_DRIVER" env-default:"memory" validate:"oneof=memory postgres"`
	PostgresDSN         string        `env:"ORDERS_POSTGRES_DSN" validate:"required_if=StorageDriver postgres"`
	PostgresAutoMigrate bool          `env:"ORDERS_POSTGRES_AUTO_MIGRATE" env-default:"true"`

	JWTSecret string `env:"ORDERS_JWT_SECRET" validate:"required"`
	JWTIssuer string `env:"ORDERS_JWT_ISSUER"`

	LogLevel string `env:"ORDERS_LOG_LEVEL" env-default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`

	KafkaBrokers  []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic    string   `env:"ORDERS_KAFKA_TOPIC" env-default:"orders.lifecycle.events" validate:"required"`
	KafkaDLQTopic string   `env:"ORDERS_KAFKA_DLQ_TOPIC"`

	OutboxPollInterval time.Duration `env:"ORDERS_OUTBOX_POLL_INTERVAL" env-default:"1s" validate:"gt=0"`
	OutboxBatchSize    int           `env:"ORDERS_OUTBOX_BATCH_SIZE" env-default:"100" validate:"gt=0"`
	OutboxMaxAttempts  int           `env:"ORDERS_OUTBOX_MAX_ATTEMPTS" env-default:"3" validate:"gt=0"`
	OutboxRetryDelay   time.Duration `env:"ORDERS_OUTBOX_RETRY_DELAY" env-default:"200ms" validate:"gte=0"`

	ShutdownTimeout time.Duration `env:"ORDERS_SHUTDOWN_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

// DefaultConfig возвращает значения по умолчанию. JWTSecret остаётся пустым:
// его обязан задать оператор.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		LogLevel:            "info",
		KafkaTopic:          kafka.TopicOrderLifecycle,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    200 * time.Millisecond,
		ShutdownTimeout:     5 * time.Second,
	}
}

// LoadConfig подхватывает .env-файлы (если есть), читает окружение и проверяет результат.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет связи между полями.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// KafkaEnabled сообщает, заданы ли брокеры.
func (c Config) KafkaEnabled() bool {
	for _, broker := range c.KafkaBrokers {
		if broker != "" {
			return true
		}
	}
	return false
}
