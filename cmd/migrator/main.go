package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fastprodman/gamemarket/internal/infra/logging"
	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/pkg/envconf"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

//go:embed test_data/*.sql
var seedFS embed.FS

// Seed rows are versioned separately so schema and seed numbering never collide.
const seedMigrationsTable = "seed_migrations"

type migratorConfig struct {
	DSN         string        `env:"PG_DSN"`
	LogLevel    slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	AppEnv      string        `env:"APP_ENV" default:""`
	PingTimeout time.Duration `env:"PG_PING_TIMEOUT" default:"10s"`
}

type step struct {
	name  string
	fsys  fs.FS
	dir   string
	table string
}

func main() {
	err := migrateAll()
	if err != nil {
		slog.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migration run finished successfully")
}

func migrateAll() error {
	cfg := new(migratorConfig)

	err := envconf.LoadWithDotEnv(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	db, err := sql.Open(pgutils.DriverName, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	steps := []step{{name: "schema", fsys: schemaFS, dir: "migrations"}}
	if cfg.AppEnv == "DEV" {
		steps = append(steps, step{name: "seed", fsys: seedFS, dir: "test_data", table: seedMigrationsTable})
	}

	for _, s := range steps {
		version, err := run(db, s)
		if err != nil {
			return fmt.Errorf("%s migrations: %w", s.name, err)
		}

		slog.Info("migrations applied", "step", s.name, "version", version)
	}

	return nil
}

func run(db *sql.DB, s step) (uint, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: s.table})
	if err != nil {
		return 0, fmt.Errorf("init postgres driver: %w", err)
	}

	src, err := iofs.New(s.fsys, s.dir)
	if err != nil {
		return 0, fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("m.Up: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read version: %w", err)
	}

	return version, nil
}
