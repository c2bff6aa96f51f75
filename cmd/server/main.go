package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"zoom-meetings-api/internal/config"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zoom-meetings",
		Short: "Create and track Zoom meetings from a small web app",
		Long: `zoom-meetings connects a Zoom account over OAuth, creates and lists
meetings through the Zoom API, mirrors them in Postgres and records
attendance from Zoom webhooks.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newCreateSuperuserCmd())
	return root
}

func main() {
	// no subcommand runs the server
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// setup loads config and builds the logger every subcommand needs.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func connect(ctx context.Context, dbURL string, logger *slog.Logger) (*pgxpool.Pool, *store.Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, store.New(pool), nil
}
