package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/infra/postgres"
	"quiz-sync-service/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	log := logging.New(cfg.LogFormat(), cfg.Log.Level)

	applied, err := postgres.Migrate(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	log.Info("migrations applied", "migrations", applied)
	return nil
}
