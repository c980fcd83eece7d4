package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"github.com/unbrain/admin-apiserver/config"
	_ "modernc.org/sqlite"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

// Mode identifies the active persistence backend.
type Mode string

const (
	ModePostgres Mode = "postgres"
	ModeSQLite   Mode = "sqlite"
)

// Querier is the query surface shared by Database and Tx. Repositories are
// written against it so the same code runs inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	InsertReturningID(ctx context.Context, query string, args ...any) (int, error)
}

// Database wraps a sql.DB together with the dialect of the backend it was
// opened against. All queries pass through the dialect rewriter, so call
// sites never branch on the active backend.
type Database struct {
	db      *sql.DB
	mode    Mode
	dialect Dialect
}

// Open establishes the persistence backend. The primary PostgreSQL server is
// probed first when a connection string is configured; on probe failure, or
// when no connection string is present, the embedded SQLite backend is used.
// Both backends failing is fatal to startup.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Database, error) {
	if cfg.DatabaseURL != "" {
		database, err := openPostgres(ctx, cfg.DatabaseURL)
		if err == nil {
			logger.Info("connected to database", "mode", ModePostgres)
			return database, nil
		}
		logger.Warn("primary database unreachable, falling back to sqlite", "error", err)
	} else {
		logger.Info("no primary database configured, using sqlite")
	}

	database, err := openSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite fallback: %w", err)
	}
	logger.Info("connected to database", "mode", ModeSQLite, "path", cfg.SQLitePath)
	return database, nil
}

func openPostgres(ctx context.Context, dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Database{db: db, mode: ModePostgres, dialect: postgresDialect{}}, nil
}

func openSQLite(ctx context.Context, path string) (*Database, error) {
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?_time_format=sqlite"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		dsn = path + "?_time_format=sqlite&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single connection serializes writers and keeps :memory: databases
	// from fragmenting across pool connections.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Database{db: db, mode: ModeSQLite, dialect: sqliteDialect{}}, nil
}

// Mode returns the active backend.
func (d *Database) Mode() Mode { return d.mode }

// IsUniqueViolation reports whether err is a uniqueness-constraint error
// from the active backend.
func (d *Database) IsUniqueViolation(err error) bool {
	return d.dialect.IsUniqueViolation(err)
}

func (d *Database) Close() error { return d.db.Close() }

func (d *Database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.dialect.Rewrite(query), args...)
}

func (d *Database) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.dialect.Rewrite(query), args...)
}

func (d *Database) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.dialect.Rewrite(query), args...)
}

// InsertReturningID executes an INSERT written with a RETURNING id clause.
// On SQLite the clause is stripped by the rewriter and the assigned row id
// is recovered with last_insert_rowid.
func (d *Database) InsertReturningID(ctx context.Context, query string, args ...any) (int, error) {
	return insertReturningID(ctx, d, d.dialect, query, args...)
}

// Tx is a transaction sharing the Database's dialect.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rewrite(query), args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.Rewrite(query), args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rewrite(query), args...)
}

func (t *Tx) InsertReturningID(ctx context.Context, query string, args ...any) (int, error) {
	return insertReturningID(ctx, t, t.dialect, query, args...)
}

func insertReturningID(ctx context.Context, q Querier, dialect Dialect, query string, args ...any) (int, error) {
	var id int
	if dialect.SupportsReturning() {
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}
	if err := q.QueryRowContext(ctx, "SELECT last_insert_rowid()").Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// WithTx runs fn inside a transaction: commit on success, rollback on error
// or panic. The rollback is deferred so an abandoned transaction is never
// left open.
func (d *Database) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{tx: sqlTx, dialect: d.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
