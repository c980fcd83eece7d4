package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// Dialect hides the differences between the two backends. Call sites write
// PostgreSQL-flavored query templates; the active dialect rewrites them as
// needed before execution.
type Dialect interface {
	Name() string

	// Rewrite converts a PostgreSQL query template into the backend's
	// native form.
	Rewrite(query string) string

	// SupportsReturning reports whether INSERT ... RETURNING works natively.
	// When false, the new row id is recovered via LastInsertID instead.
	SupportsReturning() bool

	// IsUniqueViolation reports whether err comes from a storage-level
	// uniqueness constraint.
	IsUniqueViolation(err error) bool
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Rewrite(query string) string { return query }

func (postgresDialect) SupportsReturning() bool { return true }

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

type sqliteDialect struct{}

var (
	placeholderRe = regexp.MustCompile(`\$(\d+)`)
	serialRe      = regexp.MustCompile(`(?i)SERIAL PRIMARY KEY`)
	nowRe         = regexp.MustCompile(`(?i)NOW\(\)`)
	trueRe        = regexp.MustCompile(`(?i)\bTRUE\b`)
	falseRe       = regexp.MustCompile(`(?i)\bFALSE\b`)
	returningRe   = regexp.MustCompile(`(?i)\s+RETURNING\s+[^;]*`)
)

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Rewrite(query string) string {
	q := placeholderRe.ReplaceAllString(query, `?$1`)
	q = serialRe.ReplaceAllString(q, "INTEGER PRIMARY KEY AUTOINCREMENT")
	q = nowRe.ReplaceAllString(q, "CURRENT_TIMESTAMP")
	q = trueRe.ReplaceAllString(q, "1")
	q = falseRe.ReplaceAllString(q, "0")
	q = returningRe.ReplaceAllString(q, "")
	return q
}

func (sqliteDialect) SupportsReturning() bool { return false }

func (sqliteDialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
