package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL and JWT_SECRET are
// required.
type Config struct {
	// Server
	HTTPEnabled     bool          `env:"HTTP_ENABLED" envDefault:"true"`
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080" validate:"required,numeric"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	// Database
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty" validate:"required"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS" envDefault:"25" validate:"gte=1"`
	DBMinConns     int32  `env:"DB_MIN_CONNS" envDefault:"5" validate:"gte=0,ltefield=DBMaxConns"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations" validate:"required"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Auth and links
	JWTSecret            string `env:"JWT_SECRET,required,notEmpty" validate:"required,min=32"`
	PublicBaseURL        string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	ModerationAdminEmail string `env:"MODERATION_ADMIN_EMAIL" envDefault:"moderation@localhost" validate:"required"`

	// Email gateway; an empty URL logs messages instead of sending them.
	EmailGatewayURL   string        `env:"EMAIL_GATEWAY_URL" validate:"omitempty,url"`
	EmailGatewayToken string        `env:"EMAIL_GATEWAY_TOKEN"`
	EmailFrom         string        `env:"EMAIL_FROM" envDefault:"noreply@localhost" validate:"required"`
	EmailTimeout      time.Duration `env:"EMAIL_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	EmailRateLimit    int           `env:"EMAIL_RATE_LIMIT" envDefault:"20" validate:"gte=1"`

	// Task queue and worker pool
	Workers         int           `env:"WORKERS" envDefault:"4" validate:"gte=0"`
	QueueBuffer     int           `env:"QUEUE_BUFFER" envDefault:"256" validate:"gte=1"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"1s" validate:"gt=0"`
	ClaimBatch      int           `env:"CLAIM_BATCH" envDefault:"32" validate:"gte=1"`
	LeaseDuration   time.Duration `env:"LEASE_DURATION" envDefault:"2m" validate:"gt=0"`
	TaskTimeout     time.Duration `env:"TASK_TIMEOUT" envDefault:"30s" validate:"gt=0,ltfield=LeaseDuration"`
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"5" validate:"gte=1"`
	RetryBaseDelay  time.Duration `env:"RETRY_BASE_DELAY" envDefault:"5s" validate:"gt=0"`
	RetryMaxDelay   time.Duration `env:"RETRY_MAX_DELAY" envDefault:"10m" validate:"gtefield=RetryBaseDelay"`
	MonitorSchedule string        `env:"MONITOR_SCHEDULE" envDefault:"@every 1m" validate:"required"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
