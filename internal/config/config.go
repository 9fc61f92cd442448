package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HTTPServerPort uint16   `env:"PORT"                envDefault:"3000" validate:"min=1"`
	OriginPatterns []string `env:"WS_ORIGIN_PATTERNS"  envDefault:"*"    envSeparator:","`

	RateLimitPerWindow int           `env:"RATE_LIMIT_PER_WINDOW" envDefault:"20" validate:"min=1"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW"     envDefault:"1s"`
	ConnIdleTimeout    time.Duration `env:"CONN_IDLE_TIMEOUT"     envDefault:"5m"`

	LogDevelopment bool `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

func Load() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(".env"); err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
