package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"agro-dashboard/backend/internal/config"
	"agro-dashboard/backend/internal/logging"
	"agro-dashboard/backend/internal/repository"
)

// app carries what every subcommand needs after the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "agro-server",
		Short:         "Production timeline service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and MCP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.migrate(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return rootCmd
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		// the configured logger is not available yet
		logging.NewLogger().Error("failed to load configuration", "path", a.configPath, "error", err)
		return fmt.Errorf("configuration loading failed: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore returns the configured repository and a function releasing it.
func (a *app) openStore(ctx context.Context) (repository.Repository, func(), error) {
	if a.cfg.DB.Driver == "memory" {
		a.logger.Warn("using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), func() {}, nil
	}

	a.logger.Debug("initializing database connection", "host", a.cfg.DB.Host, "name", a.cfg.DB.Name)
	pool, err := repository.Connect(ctx, a.cfg.DatabaseURL(), a.cfg.DB.ConnectTimeout, func(err error, next time.Duration) {
		a.logger.Warn("database not ready, retrying", "error", err, "retry_in", next)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("database initialization failed: %w", err)
	}
	a.logger.Info("database connected")

	if a.cfg.DB.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		a.logger.Info("database schema up to date")
	}
	return repository.NewPostgresStore(pool), pool.Close, nil
}

func (a *app) migrate(ctx context.Context) error {
	if a.cfg.DB.Driver != "postgres" {
		return fmt.Errorf("migrate requires db.driver postgres, got %q", a.cfg.DB.Driver)
	}
	pool, err := repository.Connect(ctx, a.cfg.DatabaseURL(), a.cfg.DB.ConnectTimeout, nil)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := repository.Migrate(ctx, pool); err != nil {
		return err
	}
	a.logger.Info("migration complete")
	return nil
}
