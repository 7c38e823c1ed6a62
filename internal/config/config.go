package config

import "time"

type PostgresConfig struct {
	DSN              string        `env:"PG_DSN"`
	MaxOpenConns     int           `env:"PG_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns     int           `env:"PG_MAX_IDLE_CONNS" default:"10"`
	ConnMaxIdleTime  time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime  time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
	StatementTimeout time.Duration `env:"PG_STATEMENT_TIMEOUT" default:"5s"`
	TxTimeout        time.Duration `env:"PG_TX_TIMEOUT" default:"10s"`
}

// RedisConfig configures the optional in-flight checkout guard.
// An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" default:""`
	Password string        `env:"REDIS_PASSWORD" default:""`
	DB       int           `env:"REDIS_DB" default:"0"`
	GuardTTL time.Duration `env:"CHECKOUT_GUARD_TTL" default:"30s"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" default:"5"`
	Burst int     `env:"RATE_LIMIT_BURST" default:"10"`
}

type JobsConfig struct {
	// LedgerCheckSpec is a robfig/cron spec; empty disables the job.
	LedgerCheckSpec string `env:"LEDGER_CHECK_SPEC" default:""`
}

type HTTPConfig struct {
	Port              uint16        `env:"APP_PORT" default:"8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" default:"60s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	CORSOrigins       []string      `env:"APP_CORS_ORIGINS" default:"*"`
}
