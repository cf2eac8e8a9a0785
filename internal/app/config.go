package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix: префикс переменных окружения (STOREFRONT_GRPC_ADDR и т.д.).
	EnvPrefix  = "STOREFRONT"
	dotEnvFile = ".env"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

const (
	PaymentGatewayMock        = "mock"
	PaymentGatewayPreApproved = "preapproved"
	PaymentGatewayREST        = "rest"
)

const (
	CommerceAPIMemory = "memory"
	CommerceAPIREST   = "rest"
)

const (
	EventsBrokerNone  = "none"
	EventsBrokerKafka = "kafka"
	EventsBrokerNATS  = "nats"
)

var (
	errUnsupportedStorageDriver  = errors.New("unsupported storage driver")
	errUnsupportedPaymentGateway = errors.New("unsupported payment gateway")
	errUnsupportedCommerceAPI    = errors.New("unsupported commerce api")
	errUnsupportedEventsBroker   = errors.New("unsupported events broker")
)

// Config описывает настройки запуска витрины. Списки (брокеры Kafka, одобренные клиенты)
// хранятся строками через запятую, чтобы Config оставался сравнимым значением.
type Config struct {
	GRPCAddr        string        `mapstructure:"grpc-addr"`
	MetricsAddr     string        `mapstructure:"metrics-addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`

	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`

	StorageDriver       string `mapstructure:"storage-driver"`
	PostgresDSN         string `mapstructure:"postgres-dsn"`
	PostgresAutoMigrate bool   `mapstructure:"postgres-auto-migrate"`
	CatalogFile         string `mapstructure:"catalog-file"`

	PaymentGateway       string `mapstructure:"payment-gateway"`
	PaymentURL           string `mapstructure:"payment-url"`
	PaymentToken         string `mapstructure:"payment-token"`
	PreApprovedCustomers string `mapstructure:"preapproved-customers"`

	CommerceAPI      string `mapstructure:"commerce-api"`
	CommerceAPIURL   string `mapstructure:"commerce-api-url"`
	CommerceAPIToken string `mapstructure:"commerce-api-token"`

	Currency      string `mapstructure:"currency"`
	DecimalPlaces int    `mapstructure:"decimal-places"`

	EventsBroker      string `mapstructure:"events-broker"`
	KafkaBrokers      string `mapstructure:"kafka-brokers"`
	KafkaTopic        string `mapstructure:"kafka-topic"`
	KafkaDLQTopic     string `mapstructure:"kafka-dlq-topic"`
	NATSURL           string `mapstructure:"nats-url"`
	NATSSubjectPrefix string `mapstructure:"nats-subject-prefix"`

	OutboxPollInterval time.Duration `mapstructure:"outbox-poll-interval"`
	OutboxBatchSize    int           `mapstructure:"outbox-batch-size"`
	OutboxMaxAttempts  int           `mapstructure:"outbox-max-attempts"`
	OutboxRetryDelay   time.Duration `mapstructure:"outbox-retry-delay"`
	OutboxMaxPending   int           `mapstructure:"outbox-max-pending"`

	IdempotencyTTL              time.Duration `mapstructure:"idempotency-ttl"`
	IdempotencyCleanupInterval  time.Duration `mapstructure:"idempotency-cleanup-interval"`
	IdempotencyCleanupBatchSize int           `mapstructure:"idempotency-cleanup-batch-size"`
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:        ":50051",
		MetricsAddr:     ":9090",
		ShutdownTimeout: 5 * time.Second,

		LogLevel: "info",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		PaymentGateway: PaymentGatewayMock,
		CommerceAPI:    CommerceAPIMemory,

		Currency:      "USD",
		DecimalPlaces: 2,

		EventsBroker:      EventsBrokerNone,
		KafkaTopic:        "storefront.transaction.events",
		KafkaDLQTopic:     "storefront.transaction.dlq",
		NATSSubjectPrefix: "storefront.transaction.",

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,
		OutboxMaxPending:   1000,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// Validate проверяет согласованность настроек до запуска зависимостей.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.GRPCAddr, validation.Required),
		validation.Field(&c.MetricsAddr, validation.Required),
		validation.Field(&c.StorageDriver,
			validation.In(StorageDriverMemory, StorageDriverPostgres).ErrorObject(unsupported(errUnsupportedStorageDriver)),
		),
		validation.Field(&c.PostgresDSN, validation.Required.When(c.StorageDriver == StorageDriverPostgres)),
		validation.Field(&c.PaymentGateway,
			validation.In(PaymentGatewayMock, PaymentGatewayPreApproved, PaymentGatewayREST).ErrorObject(unsupported(errUnsupportedPaymentGateway)),
		),
		validation.Field(&c.PaymentURL, validation.Required.When(c.PaymentGateway == PaymentGatewayREST)),
		validation.Field(&c.CommerceAPI,
			validation.In(CommerceAPIMemory, CommerceAPIREST).ErrorObject(unsupported(errUnsupportedCommerceAPI)),
		),
		validation.Field(&c.CommerceAPIURL, validation.Required.When(c.CommerceAPI == CommerceAPIREST)),
		validation.Field(&c.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&c.DecimalPlaces, validation.Min(0), validation.Max(8)),
		validation.Field(&c.EventsBroker,
			validation.In(EventsBrokerNone, EventsBrokerKafka, EventsBrokerNATS).ErrorObject(unsupported(errUnsupportedEventsBroker)),
		),
		validation.Field(&c.KafkaBrokers, validation.Required.When(c.EventsBroker == EventsBrokerKafka)),
		validation.Field(&c.OutboxBatchSize, validation.Min(1)),
		validation.Field(&c.OutboxMaxAttempts, validation.Min(1)),
		validation.Field(&c.IdempotencyCleanupBatchSize, validation.Min(1)),
	)
}

func unsupported(err error) validation.ErrorObject {
	return validation.NewError("validation_unsupported_value", err.Error()).(validation.ErrorObject)
}

// LoadConfig собирает конфигурацию из значений по умолчанию, файла .env,
// переменных STOREFRONT_* и флагов командной строки (флаги важнее окружения).
func LoadConfig(args []string) (Config, error) {
	flags := NewFlagSet("storefront")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	if err := loadDotEnv(dotEnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AllowEmptyEnv(false)
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv подгружает переменные из файла, если он есть. Уже заданные
// переменные окружения не перезаписываются.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// NewFlagSet описывает флаги всех настроек со значениями DefaultConfig.
func NewFlagSet(name string) *pflag.FlagSet {
	d := DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String("grpc-addr", d.GRPCAddr, "gRPC listen address")
	fs.String("metrics-addr", d.MetricsAddr, "HTTP address for /metrics and health probes")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout")

	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-file", d.LogFile, "optional rotated log file; empty logs to stderr only")

	fs.String("storage-driver", d.StorageDriver, "storage driver: memory or postgres")
	fs.String("postgres-dsn", d.PostgresDSN, "postgres connection string")
	fs.Bool("postgres-auto-migrate", d.PostgresAutoMigrate, "apply pending migrations on startup")
	fs.String("catalog-file", d.CatalogFile, "JSON file with offers to load into the catalog on startup")

	fs.String("payment-gateway", d.PaymentGateway, "payment gateway: mock, preapproved or rest")
	fs.String("payment-url", d.PaymentURL, "base URL of the REST payment gateway")
	fs.String("payment-token", d.PaymentToken, "bearer token of the REST payment gateway")
	fs.String("preapproved-customers", d.PreApprovedCustomers, "comma separated customer ids with pre-approved billing")

	fs.String("commerce-api", d.CommerceAPI, "commerce api: memory or rest")
	fs.String("commerce-api-url", d.CommerceAPIURL, "base URL of the REST commerce api")
	fs.String("commerce-api-token", d.CommerceAPIToken, "bearer token of the REST commerce api")

	fs.String("currency", d.Currency, "ISO 4217 currency of the catalog prices")
	fs.Int("decimal-places", d.DecimalPlaces, "currency precision used to round totals")

	fs.String("events-broker", d.EventsBroker, "transaction events broker: none, kafka or nats")
	fs.String("kafka-brokers", d.KafkaBrokers, "comma separated kafka brokers")
	fs.String("kafka-topic", d.KafkaTopic, "kafka topic for transaction events")
	fs.String("kafka-dlq-topic", d.KafkaDLQTopic, "kafka topic for undeliverable events")
	fs.String("nats-url", d.NATSURL, "nats server url")
	fs.String("nats-subject-prefix", d.NATSSubjectPrefix, "nats subject prefix for transaction events")

	fs.Duration("outbox-poll-interval", d.OutboxPollInterval, "outbox polling interval")
	fs.Int("outbox-batch-size", d.OutboxBatchSize, "outbox messages per poll")
	fs.Int("outbox-max-attempts", d.OutboxMaxAttempts, "publish attempts before an event goes to DLQ")
	fs.Duration("outbox-retry-delay", d.OutboxRetryDelay, "base delay between publish attempts")
	fs.Int("outbox-max-pending", d.OutboxMaxPending, "pending outbox size that marks the service degraded")

	fs.Duration("idempotency-ttl", d.IdempotencyTTL, "how long idempotent responses are kept")
	fs.Duration("idempotency-cleanup-interval", d.IdempotencyCleanupInterval, "expired idempotency keys cleanup interval")
	fs.Int("idempotency-cleanup-batch-size", d.IdempotencyCleanupBatchSize, "idempotency keys deleted per batch")

	return fs
}

// splitList разбирает список через запятую, отбрасывая пустые элементы.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
