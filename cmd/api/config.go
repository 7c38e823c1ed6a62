package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/gamemarket/internal/config"
)

type apiConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"15s"`

	HTTP      config.HTTPConfig
	Postgres  config.PostgresConfig
	Redis     config.RedisConfig
	RateLimit config.RateLimitConfig
	Jobs      config.JobsConfig
}
