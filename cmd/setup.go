package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then initializes the local database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err := shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			} else {
				if err := shared.ApplyEnv(config); err != nil {
					return fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
				}
				r.config = config
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, m := range applied {
		r.logger.Info("migration applied", "migration", m.String())
	}

	if r.config.Backend == shared.BackendLocal {
		if err := os.MkdirAll(r.config.Storage.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writeRendered(ui.Success("Setup complete (%s)", r.config.Database.Path))
}

// MigrateUp applies pending migrations.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) == 0 {
		return r.writeRendered(ui.Hint("Schema is up to date"))
	}

	var out strings.Builder
	for _, m := range applied {
		out.WriteString(ui.Success("Applied %s", m))
	}
	return r.writeRendered(out.String())
}

// MigrateDown rolls back the most recent migration.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	m, err := shared.RollbackMigration(db)
	if err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.writeRendered(ui.Success("Rolled back %s", m))
}
