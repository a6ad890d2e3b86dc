package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Checkout  CheckoutConfig
	Mail      MailConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// StorageConfig picks the persistence backend.
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// CheckoutConfig bounds the checkout transaction.
type CheckoutConfig struct {
	Timeout       time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	NotifyTimeout time.Duration
}

// MailConfig points at a transactional mail REST API.
type MailConfig struct {
	APIURL string
	APIKey string
	From   string
}

// Enabled reports whether receipts can be sent by email.
func (m MailConfig) Enabled() bool { return m.APIURL != "" }

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	ManagerID     string
}

// Enabled reports whether the WhatsApp channel is configured.
func (w WhatsAppConfig) Enabled() bool { return w.AccessToken != "" }

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the sales journal spreadsheet is configured.
func (s SheetsConfig) Enabled() bool { return s.SpreadsheetID != "" }

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// RedisConfig holds the idempotency store address.
type RedisConfig struct {
	Addr string
}

// KafkaConfig holds sale event publishing settings.
type KafkaConfig struct {
	Brokers    string
	SalesTopic string
}

// Enabled reports whether sale events are published.
func (k KafkaConfig) Enabled() bool { return strings.TrimSpace(k.Brokers) != "" }

// TracingConfig points at an OTLP/HTTP collector. Empty disables tracing.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	checkout, err := loadCheckout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getenvWithDefault("STORAGE_DRIVER", StorageMongoDB)),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "kitchenpos"),
		},
		Checkout: checkout,
		Mail: MailConfig{
			APIURL: os.Getenv("MAIL_API_URL"),
			APIKey: os.Getenv("MAIL_API_KEY"),
			From:   getenvWithDefault("MAIL_FROM", "pos@kitchenpos.local"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerID:     os.Getenv("WHATSAPP_MANAGER_ID"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			SalesTopic: getenvWithDefault("KAFKA_SALES_TOPIC", "kitchenpos.sales"),
		},
		Tracing: TracingConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: getenvWithDefault("OTEL_SERVICE_NAME", "kitchenpos"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not supported", c.Storage.Driver)
	}

	if c.Checkout.Timeout <= 0 {
		return errors.New("CHECKOUT_TIMEOUT must be positive")
	}
	if c.Checkout.MaxAttempts < 1 {
		return errors.New("CHECKOUT_MAX_ATTEMPTS must be at least 1")
	}
	if c.Checkout.NotifyTimeout <= 0 {
		return errors.New("NOTIFY_TIMEOUT must be positive")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Reporting.Timezone, err)
	}

	return nil
}

func loadCheckout() (CheckoutConfig, error) {
	timeout, err := getenvDuration("CHECKOUT_TIMEOUT", 10*time.Second)
	if err != nil {
		return CheckoutConfig{}, err
	}
	backoff, err := getenvDuration("CHECKOUT_RETRY_BACKOFF", 25*time.Millisecond)
	if err != nil {
		return CheckoutConfig{}, err
	}
	notify, err := getenvDuration("NOTIFY_TIMEOUT", 15*time.Second)
	if err != nil {
		return CheckoutConfig{}, err
	}
	attempts, err := strconv.Atoi(getenvWithDefault("CHECKOUT_MAX_ATTEMPTS", "3"))
	if err != nil {
		return CheckoutConfig{}, fmt.Errorf("CHECKOUT_MAX_ATTEMPTS: %w", err)
	}

	return CheckoutConfig{
		Timeout:       timeout,
		MaxAttempts:   attempts,
		RetryBackoff:  backoff,
		NotifyTimeout: notify,
	}, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
