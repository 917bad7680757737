package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverDynamoDB = "dynamodb"
)

type Config struct {
	// Payment gateway. Left optional so a missing key surfaces per request.
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`

	// Purchase storage
	StoreDriver       string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL       string `env:"DATABASE_URL"`
	PurchasesTable    string `env:"PURCHASES_TABLE" envDefault:"purchases"`
	ProductFilesTable string `env:"PRODUCT_FILES_TABLE" envDefault:"product_files"`

	// Idempotency for order creation (DynamoDB). Empty table disables it.
	IdempotencyTable string        `env:"IDEMPOTENCY_TABLE"`
	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"48h"`

	// Fulfillment queue. Empty disables publishing.
	FulfillmentQueueURL string `env:"FULFILLMENT_QUEUE_URL"`

	// CloudWatch metrics. Empty namespace disables metrics.
	MetricsNamespace string `env:"METRICS_NAMESPACE"`

	// Rate limiting. Empty address disables limiting.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RateLimit     int           `env:"RATE_LIMIT" envDefault:"20"`
	RateWindow    time.Duration `env:"RATE_WINDOW" envDefault:"1m"`

	// Deliverables
	MaterialsDownloadLink string `env:"MATERIALS_DOWNLOAD_LINK" envDefault:"https://drive.google.com/file/d/181w4bHGMO6rb5gHM5NQOyySNmrWHL2Oo/view?usp=sharing"`

	// Confirmation email (worker)
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"BudFi AI Masterclass <no-reply@budfi.ai>"`

	// AWS
	AWSRegion           string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointOverride string `env:"AWS_ENDPOINT_OVERRIDE"`

	// Server
	RunLocal bool   `env:"RUN_LOCAL" envDefault:"false"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be fixed at request time.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverDynamoDB:
		if c.PurchasesTable == "" || c.ProductFilesTable == "" {
			return fmt.Errorf("PURCHASES_TABLE and PRODUCT_FILES_TABLE are required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative")
	}
	return nil
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}
