package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"typologylab/internal/config"
	pgmigrations "typologylab/internal/infra/postgres/migrations"
	"typologylab/internal/logger"
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
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	return runMigrationsWithConfig(ctx, cfg, log)
}

// RunMigrations applies every pending migration to the database at url.
func RunMigrations(ctx context.Context, url string, log *zap.Logger) error {
	if url == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.Info("migrations applied", zap.String("group", group.String()))
	return nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	return RunMigrations(ctx, cfg.Postgres.URL, log)
}
