package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/librix/internal/filecache"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadSetupConfig reads the config at path, creating it from the embedded template when missing.
func (r *Runner) loadSetupConfig(path string) *shared.Config {
	var config *shared.Config
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", path)
			if config, err = shared.LoadConfig(path); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if err := config.ApplyEnv(); err != nil {
		r.logger.Warn("ignoring environment overrides", "error", err)
	}
	return config
}

// SetupDatabase initializes the database, runs migrations and creates the poster cache.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadSetupConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)
	if dir := filepath.Dir(config.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if config.Cache.Path != "" {
		r.logger.Info("initializing poster cache", "path", config.Cache.Path)
		store, err := filecache.Open(config.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to create poster cache: %w", err)
		}
		if err := store.Close(); err != nil {
			return fmt.Errorf("failed to close poster cache: %w", err)
		}
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready: %s\n", config.Database.Path)
	return nil
}

// SetupStatus lists the applied migrations of the configured database.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	if len(applied) == 0 {
		r.writePlain("No migrations applied\n")
		return nil
	}
	for _, m := range applied {
		r.writePlain("%04d  applied %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to rollback: %w", err)
	}

	r.logger.Warn("rolled back latest migration", "path", r.config.Database.Path)
	r.writePlain("✓ Rolled back latest migration\n")
	return nil
}
