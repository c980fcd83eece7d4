package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unbrain/admin-apiserver/config"
	"github.com/unbrain/admin-apiserver/internal/auth"
	"github.com/unbrain/admin-apiserver/types"
)

// The users table is authored once per backend. Dialect rewriting covers DML
// templates; DDL differs enough (autoincrement, triggers) that each backend
// gets its own definition, selected by the active mode.
var postgresSchema = []string{
	`CREATE TABLE users (
		id SERIAL PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'moderator' CHECK (role IN ('super_admin', 'admin', 'moderator')),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by INTEGER REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login TIMESTAMPTZ
	)`,
	`CREATE INDEX idx_users_email ON users(email)`,
	`CREATE INDEX idx_users_role ON users(role)`,
	`CREATE INDEX idx_users_active ON users(is_active)`,
}

var sqliteSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'moderator' CHECK (role IN ('super_admin', 'admin', 'moderator')),
		is_active INTEGER NOT NULL DEFAULT 1,
		created_by INTEGER REFERENCES users(id),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMP
	)`,
	`CREATE INDEX idx_users_email ON users(email)`,
	`CREATE INDEX idx_users_role ON users(role)`,
	`CREATE INDEX idx_users_active ON users(is_active)`,
	`CREATE TRIGGER update_users_updated_at
		AFTER UPDATE ON users
		BEGIN
			UPDATE users SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END`,
}

// Bootstrap ensures the identity table exists and that exactly one
// super_admin account is present. It is safe to run on every startup.
func Bootstrap(ctx context.Context, database *Database, cfg config.Config, logger *slog.Logger) error {
	exists, err := usersTableExists(ctx, database)
	if err != nil {
		return fmt.Errorf("check users table: %w", err)
	}

	if !exists {
		logger.Info("creating database tables")
		schema := postgresSchema
		if database.Mode() == ModeSQLite {
			schema = sqliteSchema
		}
		for _, stmt := range schema {
			if _, err := database.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
	}

	return ensureSuperAdmin(ctx, database, cfg, logger)
}

func usersTableExists(ctx context.Context, database *Database) (bool, error) {
	var count int
	var query string
	switch database.Mode() {
	case ModeSQLite:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'`
	default:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'users'`
	}
	if err := database.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func ensureSuperAdmin(ctx context.Context, database *Database, cfg config.Config, logger *slog.Logger) error {
	return database.WithTx(ctx, func(tx *Tx) error {
		var count int
		const countQuery = `SELECT COUNT(*) FROM users WHERE role = $1`
		if err := tx.QueryRowContext(ctx, countQuery, types.RoleSuperAdmin).Scan(&count); err != nil {
			return fmt.Errorf("count super admins: %w", err)
		}
		if count > 0 {
			return nil
		}

		hash, err := auth.HashPassword(cfg.SuperAdminPassword)
		if err != nil {
			return fmt.Errorf("hash super admin password: %w", err)
		}

		const insertQuery = `
			INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, NOW(), NOW())`
		email := strings.ToLower(strings.TrimSpace(cfg.SuperAdminEmail))
		if _, err := tx.ExecContext(ctx, insertQuery, email, hash, types.RoleSuperAdmin); err != nil {
			return fmt.Errorf("create super admin: %w", err)
		}

		logger.Info("super admin created", "email", email)
		return nil
	})
}
