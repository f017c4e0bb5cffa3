// Package config loads process configuration from the environment.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// Any missing required value or invalid format fails Load.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level configuration shared by the API and worker binaries.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	Server   ServerConfig
	Redis    RedisConfig
	Store    StoreConfig
	Queue    QueueConfig
	Dispatch DispatchConfig
	Mail     MailConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"3000"`
	// FrontendOrigin is the single origin allowed by CORS.
	FrontendOrigin string `envconfig:"FRONTEND_ORIGIN" default:"http://localhost:5173" validate:"url"`
	// APIBaseURL is where a standalone worker posts in-app notifications.
	APIBaseURL string `envconfig:"API_BASE_URL" default:"http://localhost:3000" validate:"url"`
	// EmbeddedWorker runs the dispatch consumer inside the API process.
	EmbeddedWorker    bool          `envconfig:"EMBEDDED_WORKER" default:"true"`
	HeartbeatInterval time.Duration `envconfig:"SSE_HEARTBEAT" default:"25s" validate:"gt=0"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
}

// RedisConfig holds the Redis connection used by the scheduler and redis store.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379" validate:"required"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
}

// StoreConfig selects the task and user store.
type StoreConfig struct {
	Backend     string `envconfig:"STORE_BACKEND" default:"redis" validate:"oneof=redis postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL" validate:"required_if=Backend postgres"`
}

// QueueConfig selects the delay scheduler.
type QueueConfig struct {
	Backend        string        `envconfig:"QUEUE_BACKEND" default:"redis" validate:"oneof=redis sqs"`
	Name           string        `envconfig:"QUEUE_NAME" default:"tasks" validate:"required"`
	SQSQueueURL    string        `envconfig:"SQS_QUEUE_URL" validate:"required_if=Backend sqs,omitempty,url"`
	AWSRegion      string        `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpointURL string        `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
	VisibilityTTL  time.Duration `envconfig:"VISIBILITY_TTL" default:"30s" validate:"gt=0"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"100ms" validate:"gt=0"`
}

// DispatchConfig tunes the consumer and its retry policy.
type DispatchConfig struct {
	Concurrency     int           `envconfig:"WORKER_CONCURRENCY" default:"4" validate:"min=1"`
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	BaseDelay       time.Duration `envconfig:"RETRY_BASE_DELAY" default:"5s" validate:"gt=0"`
}

// MailConfig selects and configures the mail transport.
type MailConfig struct {
	Backend        string `envconfig:"MAIL_BACKEND" default:"log" validate:"oneof=smtp sendgrid log"`
	From           string `envconfig:"MAIL_FROM" default:"reminders@localhost" validate:"required"`
	FromName       string `envconfig:"MAIL_FROM_NAME" default:"Day Planner"`
	SMTPHost       string `envconfig:"SMTP_HOST" validate:"required_if=Backend smtp"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587" validate:"min=1,max=65535"`
	SMTPUser       string `envconfig:"SMTP_USER"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPStartTLS   bool   `envconfig:"SMTP_STARTTLS" default:"true"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY" validate:"required_if=Backend sendgrid"`
}

// AuthConfig holds session and internal API credentials.
type AuthConfig struct {
	JWTSecret      string        `envconfig:"JWT_SECRET" validate:"required,min=32"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"1h" validate:"gt=0"`
	InternalAPIKey string        `envconfig:"INTERNAL_API_KEY" validate:"required,min=16"`
}

// ConfigErrorType classifies Load failures.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "parsing"
	ErrValidation ConfigErrorType = "validation"
)

// ConfigError is a diagnostic error type returned by Load.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads a .env file if present, then the environment, and validates the result.
func Load() (*Config, error) {
	// Existing environment variables win over the .env file.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	if c.Dispatch.DeliveryTimeout >= c.Queue.VisibilityTTL {
		return &ConfigError{
			Type: ErrValidation,
			Message: fmt.Sprintf("DELIVERY_TIMEOUT (%s) must be shorter than VISIBILITY_TTL (%s)",
				c.Dispatch.DeliveryTimeout, c.Queue.VisibilityTTL),
		}
	}
	return nil
}
