package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// PgxAdapter implements the Adapter interface for PostgreSQL over the
// pgx driver's database/sql shim. It shares the PostgreSQL dialect but
// classifies errors through pgconn.
type PgxAdapter struct {
	*BaseSQLAdapter
}

// NewPgxAdapter creates a new pgx adapter.
func NewPgxAdapter() *PgxAdapter {
	return &PgxAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("pgx", "pgx"),
	}
}

// Connect establishes a connection to PostgreSQL via pgx.
func (a *PgxAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	connStr := a.ConnectionString(config)
	return a.BaseSQLAdapter.Connect(ctx, config, connStr)
}

// ConnectionString constructs a postgres:// URL as pgx prefers.
func (a *PgxAdapter) ConnectionString(config *Config) string {
	var connStr strings.Builder
	connStr.WriteString("postgres://")

	if config.Username != "" {
		connStr.WriteString(config.Username)
		if config.Password != "" {
			connStr.WriteString(":")
			connStr.WriteString(config.Password)
		}
		connStr.WriteString("@")
	}

	if config.Host != "" {
		connStr.WriteString(config.Host)
	} else {
		connStr.WriteString("localhost")
	}
	if config.Port > 0 {
		fmt.Fprintf(&connStr, ":%d", config.Port)
	}

	connStr.WriteString("/")
	connStr.WriteString(config.Database)

	params := []string{}
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	params = append(params, "sslmode="+sslMode)
	for key, value := range config.Options {
		params = append(params, key+"="+value)
	}
	connStr.WriteString("?")
	connStr.WriteString(strings.Join(params, "&"))

	return connStr.String()
}

// Placeholder returns a numbered $n bind marker.
func (a *PgxAdapter) Placeholder(n int) string {
	return numberedPlaceholder(n)
}

// IsUniqueConstraintViolation checks for SQLSTATE 23505.
func (a *PgxAdapter) IsUniqueConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsForeignKeyViolation checks for SQLSTATE 23503.
func (a *PgxAdapter) IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return a.BaseSQLAdapter.IsForeignKeyViolation(err)
}

// IsConnectionError checks for SQLSTATE class 08 (connection exceptions).
func (a *PgxAdapter) IsConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08")
	}
	return a.BaseSQLAdapter.IsConnectionError(err)
}
