package main

import (
	"context"
	"fmt"

	"github.com/evanheo/podwire/internal/shared"
	"github.com/urfave/cli/v3"
)

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage database schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply pending migrations",
				Action: r.MigrateUp,
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: r.MigrateDown,
			},
		},
	}
}

// MigrateUp applies all pending migrations.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	r.logger.Info("running database migrations", "path", r.config.Database.Path)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("migrations applied\n")
	return nil
}

// MigrateDown rolls back the most recently applied migration.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.writePlain("last migration rolled back\n")
	return nil
}
