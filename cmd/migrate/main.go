package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/config"
	"github.com/Rrens/redbot/internal/logging"
	"github.com/Rrens/redbot/internal/repository/postgres"
	"github.com/Rrens/redbot/internal/repository/sqlite"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var source string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply the Redbot database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&source, "source", "", "migration source URL (defaults to the migrations built into the binary)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				if cfg.Database.Driver == config.DriverSQLite {
					// The embedded store applies its schema on open
					db, err := sqlite.Open(cmd.Context(), cfg.Database.SQLitePath)
					if err != nil {
						return err
					}
					log.Info().Str("path", cfg.Database.SQLitePath).Msg("SQLite schema applied")
					return db.Close()
				}
				log.Info().Str("host", cfg.Database.Host).Int("port", cfg.Database.Port).Msg("Applying migrations")
				return postgres.RunMigrations(cfg.Database.DSN(), source)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1 step)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid step count: %s", args[0])
					}
					steps = n
				}
				cfg, err := loadPostgres()
				if err != nil {
					return err
				}
				return postgres.RollbackMigrations(cfg.Database.DSN(), source, steps)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadPostgres()
				if err != nil {
					return err
				}
				version, dirty, err := postgres.MigrationVersion(cfg.Database.DSN(), source)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
				return nil
			},
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func load() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := logging.Setup(cfg.Logging, os.Getenv("ENV")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadPostgres() (*config.Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		return nil, fmt.Errorf("versioned migrations only apply to the postgres driver")
	}
	return cfg, nil
}
