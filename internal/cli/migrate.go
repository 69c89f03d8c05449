package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/config"
	storagesqlite "github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/storage/sqlite"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/migrations"
)

// NewMigrateCommand creates the migrate command, which installs the schema
// and the ledger guard, then exits.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			logger := setupLogging(cfg.LogLevel, rootOpts.Verbose)

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			switch cfg.Backend {
			case "postgres":
				pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect to db: %w", err)
				}
				defer pool.Close()
				if err := migrations.Apply(ctx, pool); err != nil {
					return fmt.Errorf("apply migrations: %w", err)
				}
			case "sqlite":
				db, err := storagesqlite.InitDB(ctx, cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer func() { _ = storagesqlite.CloseDB(db) }()
			default:
				return fmt.Errorf("unknown backend %q", cfg.Backend)
			}

			logger.Info("schema up to date", "backend", cfg.Backend)
			return nil
		},
	}
}
