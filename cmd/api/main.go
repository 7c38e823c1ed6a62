package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fastprodman/gamemarket/internal/api"
	"github.com/fastprodman/gamemarket/internal/infra/logging"
	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/infra/redisguard"
	"github.com/fastprodman/gamemarket/internal/services/audit"
	"github.com/fastprodman/gamemarket/internal/services/balance"
	"github.com/fastprodman/gamemarket/internal/services/cart"
	"github.com/fastprodman/gamemarket/internal/services/catalog"
	"github.com/fastprodman/gamemarket/internal/services/ledgercheck"
	"github.com/fastprodman/gamemarket/internal/services/purchase"
	"github.com/fastprodman/gamemarket/pkg/envconf"
	"github.com/fastprodman/gamemarket/pkg/shutdownqueue"
)

const (
	limiterSweepEvery = 5 * time.Minute
	ledgerCheckBudget = 2 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

	err := envconf.LoadWithDotEnv(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.AddNamed("postgres", func(context.Context) error {
		return dbConns.Close()
	})

	log := slog.Default()

	// --- Services ---
	balanceSrv := balance.New(dbConns, log).WithTxTimeout(cfg.Postgres.TxTimeout)
	recorder := audit.New(dbConns, log)
	cartSrv := cart.New(dbConns, log)
	catalogSrv := catalog.New(dbConns, recorder, log)
	orchestrator := purchase.New(dbConns, balanceSrv, recorder, cartSrv, log).
		WithTxTimeout(cfg.Postgres.TxTimeout)

	if cfg.Redis.Enabled() {
		rdb, rerr := redisguard.Connect(ctx, cfg.Redis)
		if rerr != nil {
			return fmt.Errorf("connect redis: %w", rerr)
		}

		shutdownqueue.AddNamed("redis", func(context.Context) error {
			return rdb.Close()
		})

		orchestrator.WithGuard(redisguard.New(rdb, cfg.Redis.GuardTTL))
		slog.Info("checkout guard enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.GuardTTL)
	}

	// --- HTTP server ---
	limiter := api.NewRateLimiter(cfg.RateLimit)
	handler := api.NewRouter(api.NewHandler(api.Services{
		Balance:  balanceSrv,
		Checkout: orchestrator,
		Cart:     cartSrv,
		History:  recorder,
		Catalog:  catalogSrv,
	}, log), limiter, cfg.HTTP.CORSOrigins...)

	// --- Jobs ---
	if spec := cfg.Jobs.LedgerCheckSpec; spec != "" {
		checker := ledgercheck.New(dbConns, log)

		sched, serr := checker.Schedule(ctx, spec, ledgerCheckBudget)
		if serr != nil {
			return fmt.Errorf("ledger check: %w", serr)
		}

		sched.Start()
		shutdownqueue.AddNamed("ledger check", func(c context.Context) error {
			select {
			case <-sched.Stop().Done():
				return nil
			case <-c.Done():
				return c.Err()
			}
		})

		slog.Info("ledger check scheduled", "spec", spec)
	}

	srv := api.NewServer(cfg.HTTP, handler, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		slog.Info("Shut down server")

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		t := time.NewTicker(limiterSweepEvery)
		defer t.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				limiter.Sweep(limiterSweepEvery)
			}
		}
	})

	slog.Info("API started", "port", cfg.HTTP.Port)

	// Returns once the signal arrives (or a goroutine fails) and the server
	// has drained; the deferred queue then releases the rest.
	return g.Wait()
}
