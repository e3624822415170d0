// Package repositories holds the PostgreSQL implementations of the domain
// persistence contracts.
package repositories

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

// queryExecutor abstracts sql.DB and sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// psql is the shared statement builder configured for PostgreSQL
// placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
