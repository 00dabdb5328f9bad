// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/cdc"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/eventlog"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/database"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/utilities"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:3000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`

	JWTSecret     string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
	SnowflakeNode int64         `env:"SNOWFLAKE_NODE" envDefault:"1"`

	Log      utilities.Config
	Database database.Config `envPrefix:"DATABASE_"`
	Kafka    cdc.Config      `envPrefix:"KAFKA_"`
	EventLog eventlog.Config `envPrefix:"EVENT_LOG_"`
}

// Load reads a .env file if present, then parses the environment.
func Load(files ...string) (*Config, error) {
	// best-effort: a missing .env is not an error
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BcryptCost < user.MinBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d, got %d", user.MinBcryptCost, c.BcryptCost)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when the consumer is enabled")
	}
	return nil
}
