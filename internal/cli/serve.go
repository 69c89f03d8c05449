package cli

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/app"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/audit"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/clock"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/config"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/locking"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/metrics"
	storagepostgres "github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/storage/postgres"
	storagesqlite "github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/storage/sqlite"
	transporthttp "github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/transport/http"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/migrations"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ledger API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

type repos struct {
	ledger app.LedgerRepository
	admin  app.AdminRepository
	report app.ReportRepository
	audit  audit.Store
	close  func()
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.LogLevel, rootOpts.Verbose)

	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	r, err := openRepos(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	clk := clock.NewSystem()
	auditor := audit.NewRecorder(r.audit)

	svcs := transporthttp.Services{
		Ledger: app.NewLedgerService(r.ledger, auditor, clk, logger, m),
		Report: app.NewReportService(r.report),
		Admin:  app.NewAdminService(r.admin, auditor, clk, logger),
	}

	mux := transporthttp.NewMux(svcs, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	logger.Info("api listening", "addr", cfg.Addr, "backend", cfg.Backend)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", "err", err)
	}
	logger.Info("server stopped")
	return nil
}

func openRepos(ctx context.Context, cfg config.Config, logger *slog.Logger) (repos, error) {
	switch cfg.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return repos{}, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return repos{}, fmt.Errorf("db ping: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return repos{}, fmt.Errorf("apply migrations: %w", err)
		}
		return repos{
			ledger: storagepostgres.NewLedgerRepository(pool, cfg.LockWait),
			admin:  storagepostgres.NewAdminRepository(pool, cfg.LockWait),
			report: storagepostgres.NewReportRepository(pool),
			audit:  storagepostgres.NewAuditRepository(pool),
			close:  pool.Close,
		}, nil
	case "sqlite":
		db, err := storagesqlite.InitDB(ctx, cfg.SQLitePath)
		if err != nil {
			return repos{}, err
		}
		locks := locking.NewManager()
		return repos{
			ledger: storagesqlite.NewLedgerRepository(db, locks, cfg.LockWait),
			admin:  storagesqlite.NewAdminRepository(db, locks, cfg.LockWait),
			report: storagesqlite.NewReportRepository(db),
			audit:  storagesqlite.NewAuditRepository(db),
			close: func() {
				if err := storagesqlite.CloseDB(db); err != nil {
					logger.Warn("close sqlite", "err", err)
				}
			},
		}, nil
	}
	return repos{}, fmt.Errorf("unknown backend %q", cfg.Backend)
}
