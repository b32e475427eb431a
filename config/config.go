/*
Package config loads runtime configuration from the environment.

PURPOSE:
  One struct for everything the server needs: HTTP, storage, cache,
  balance options, scheduler and logging. Values come from environment
  variables, optionally seeded from a .env file for local development.

VARIABLES:
  ENVIRONMENT                      development | production
  SERVER_PORT                      HTTP port (8080)
  SERVER_SHUTDOWN_TIMEOUT          graceful shutdown budget, seconds (30)
  SERVER_ALLOWED_ORIGINS           comma-separated CORS origins
  DATABASE_PATH                    SQLite path, ":memory:" allowed
  REDIS_ADDR                       host:port; empty disables the cache
  REDIS_TTL                        cached balance lifetime, seconds (300)
  BALANCE_INCLUDE_ALWAYS_APPLICABLE count flexible/completa/personalizada
  BALANCE_CONCURRENCY              parallel client balances per report (4)
  BALANCE_LOCALE                   report name ordering (es)
  SCHEDULER_ENABLED                run the monthly report scheduler
  SCHEDULER_INTERVAL               seconds between checks (3600)
  LOG_LEVEL                        debug | info | warn | error
  LOG_FORMAT                       json | console

SEE ALSO:
  - cmd/server/main.go: consumes Config
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            int      `env:"PORT" envDefault:"8080"`
		ReadTimeout     int      `env:"READ_TIMEOUT" envDefault:"15"`
		WriteTimeout    int      `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int      `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int      `env:"SHUTDOWN_TIMEOUT" envDefault:"30"`
		AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
	} `envPrefix:"SERVER_"`
	Database struct {
		Path string `env:"PATH" envDefault:"care-hours.db"`
	} `envPrefix:"DATABASE_"`
	Redis   RedisConfig `envPrefix:"REDIS_"`
	Balance struct {
		IncludeAlwaysApplicable bool   `env:"INCLUDE_ALWAYS_APPLICABLE" envDefault:"false"`
		Concurrency             int    `env:"CONCURRENCY" envDefault:"4"`
		Locale                  string `env:"LOCALE" envDefault:"es"`
	} `envPrefix:"BALANCE_"`
	Scheduler struct {
		Enabled  bool `env:"ENABLED" envDefault:"false"`
		Interval int  `env:"INTERVAL" envDefault:"3600"`
	} `envPrefix:"SCHEDULER_"`
	Log struct {
		Level  string `env:"LEVEL" envDefault:"info"`
		Format string `env:"FORMAT" envDefault:"json"`
	} `envPrefix:"LOG_"`
}

// RedisConfig is shared with the cache package.
type RedisConfig struct {
	Addr        string `env:"ADDR"`
	Password    string `env:"PASSWORD"`
	DB          int    `env:"DB" envDefault:"0"`
	TTL         int    `env:"TTL" envDefault:"300"`
	DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"5"`
}

// Enabled is false when no address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

func (r RedisConfig) TTLDuration() time.Duration { return time.Duration(r.TTL) * time.Second }

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// First error only; the rest are usually consequences.
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT %d", cfg.Server.Port)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

func (c *Config) SchedulerInterval() time.Duration {
	if c.Scheduler.Interval <= 0 {
		return time.Hour
	}
	return time.Duration(c.Scheduler.Interval) * time.Second
}

// =============================================================================
// LOGGER
// =============================================================================

// NewLogger builds the zap logger for the configured environment.
func NewLogger(c *Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if c.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch c.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if c.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(c.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}
