package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// StorageDriver выбирает бэкенд хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string
	LogLevel    string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers   []string
	KafkaTaskTopic string
	KafkaDLQTopic  string

	ProjectID              string
	WaiterSecret           string
	WaiterPassportIssuers  []string
	AccessTokenSecret      string
	PrintTokenTTL          time.Duration
	DefaultInformOrderURLs []string

	TaskExportInterval    time.Duration
	TaskExportBatchSize   int
	TaskExportMaxAttempts int
	TaskReexportAfter     time.Duration
	ExpirationInterval    time.Duration

	IdempotencyTTL   time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int

	// Sellers заносятся в справочник продавцов при старте.
	Sellers []domain.Seller
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:              ":8080",
		GRPCAddr:              ":50051",
		MetricsAddr:           ":9090",
		LogLevel:              "info",
		StorageDriver:         StorageDriverMemory,
		PostgresAutoMigrate:   true,
		KafkaTaskTopic:        "placeorder.tasks",
		KafkaDLQTopic:         "placeorder.tasks.dlq",
		ProjectID:             "ttts",
		AccessTokenSecret:     "local-access-secret",
		PrintTokenTTL:         30 * time.Minute,
		TaskExportInterval:    time.Second,
		TaskExportBatchSize:   10,
		TaskExportMaxAttempts: 3,
		TaskReexportAfter:     10 * time.Minute,
		ExpirationInterval:    10 * time.Second,
		IdempotencyTTL:        24 * time.Hour,
		CleanupInterval:       time.Minute,
		CleanupBatchSize:      500,
		Sellers:               []domain.Seller{defaultSeller()},
	}
}

// LoadConfig читает .env (если есть) и переменные окружения поверх значений по умолчанию.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := configFromEnv(DefaultConfig(), os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(key string) (string, bool)

func configFromEnv(cfg Config, lookup lookupFunc) (Config, error) {
	env := envReader{lookup: lookup}

	env.str("HTTP_ADDR", &cfg.HTTPAddr)
	env.str("GRPC_ADDR", &cfg.GRPCAddr)
	env.str("METRICS_ADDR", &cfg.MetricsAddr)
	env.str("LOG_LEVEL", &cfg.LogLevel)

	var driver string
	if env.str("STORAGE_DRIVER", &driver) {
		cfg.StorageDriver = StorageDriver(strings.ToLower(driver))
	}
	env.str("POSTGRES_DSN", &cfg.PostgresDSN)
	env.boolean("POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)

	env.str("REDIS_ADDR", &cfg.RedisAddr)
	env.str("REDIS_PASSWORD", &cfg.RedisPassword)
	env.integer("REDIS_DB", &cfg.RedisDB)

	env.list("KAFKA_BROKERS", &cfg.KafkaBrokers)
	env.str("KAFKA_TASK_TOPIC", &cfg.KafkaTaskTopic)
	env.str("KAFKA_DLQ_TOPIC", &cfg.KafkaDLQTopic)

	env.str("PROJECT_ID", &cfg.ProjectID)
	env.str("WAITER_SECRET", &cfg.WaiterSecret)
	env.list("WAITER_PASSPORT_ISSUERS", &cfg.WaiterPassportIssuers)
	env.str("ACCESS_TOKEN_SECRET", &cfg.AccessTokenSecret)
	env.duration("PRINT_TOKEN_TTL", &cfg.PrintTokenTTL)
	env.list("DEFAULT_INFORM_ORDER_URLS", &cfg.DefaultInformOrderURLs)

	env.duration("TASK_EXPORT_INTERVAL", &cfg.TaskExportInterval)
	env.integer("TASK_EXPORT_BATCH_SIZE", &cfg.TaskExportBatchSize)
	env.integer("TASK_EXPORT_MAX_ATTEMPTS", &cfg.TaskExportMaxAttempts)
	env.duration("TASK_REEXPORT_AFTER", &cfg.TaskReexportAfter)
	env.duration("EXPIRATION_INTERVAL", &cfg.ExpirationInterval)

	env.duration("IDEMPOTENCY_TTL", &cfg.IdempotencyTTL)
	env.duration("CLEANUP_INTERVAL", &cfg.CleanupInterval)
	env.integer("CLEANUP_BATCH_SIZE", &cfg.CleanupBatchSize)

	if path, ok := env.value("SELLERS_FILE"); ok {
		sellers, err := loadSellers(path)
		if err != nil {
			env.errs = append(env.errs, fmt.Errorf("SELLERS_FILE: %w", err))
		} else {
			cfg.Sellers = sellers
		}
	}

	return cfg, errors.Join(env.errs...)
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
		if len(c.Sellers) == 0 {
			errs = append(errs, errors.New("memory storage needs sellers, set SELLERS_FILE"))
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.ProjectID == "" {
		errs = append(errs, errors.New("PROJECT_ID is required"))
	}
	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTaskTopic == "" {
		errs = append(errs, errors.New("KAFKA_TASK_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.TaskExportBatchSize <= 0 || c.CleanupBatchSize <= 0 {
		errs = append(errs, errors.New("batch sizes must be positive"))
	}
	if c.TaskReexportAfter <= 0 {
		errs = append(errs, errors.New("TASK_REEXPORT_AFTER must be positive"))
	}
	for i, seller := range c.Sellers {
		if strings.TrimSpace(seller.Identifier) == "" || strings.TrimSpace(seller.ID) == "" {
			errs = append(errs, fmt.Errorf("seller #%d: id and identifier are required", i))
		}
	}

	return errors.Join(errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) bool {
	v, ok := r.value(key)
	if ok {
		*dst = v
	}
	return ok
}

func (r *envReader) list(key string, dst *[]string) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	items := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.value(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
