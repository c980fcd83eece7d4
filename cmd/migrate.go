/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"github.com/unbrain/admin-apiserver/config"
)

// migrateCmd represents the migrate command. Migrations target the primary
// PostgreSQL backend; the embedded fallback creates its schema at startup.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations against the primary backend",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required to run migrations")
		}

		migrationsURL := "file://migrations"
		migrator, err := migrate.New(migrationsURL, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("init migrator failed: %w", err)
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				return nil
			}
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}
