package adapter

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"quarry"
)

// BaseSQLAdapter provides common functionality for all SQL adapters.
type BaseSQLAdapter struct {
	db         *sql.DB
	driverName string
	name       string
}

// NewBaseSQLAdapter creates a new base SQL adapter.
func NewBaseSQLAdapter(driverName, name string) *BaseSQLAdapter {
	return &BaseSQLAdapter{
		driverName: driverName,
		name:       name,
	}
}

// Name returns the adapter name.
func (a *BaseSQLAdapter) Name() string {
	return a.name
}

// Connect establishes a database connection with common configuration.
func (a *BaseSQLAdapter) Connect(ctx context.Context, config *Config, connectionString string) (*sql.DB, error) {
	db, err := sql.Open(a.driverName, connectionString)
	if err != nil {
		return nil, quarry.WrapConnectionError(err, "connect", a.driverName, config.Host)
	}

	a.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, quarry.WrapConnectionError(err, "ping", a.driverName, config.Host)
	}

	a.db = db
	return db, nil
}

// configureConnectionPool sets up connection pooling - identical across all adapters.
func (a *BaseSQLAdapter) configureConnectionPool(db *sql.DB, config *Config) {
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}
}

// Close closes the database connection.
func (a *BaseSQLAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// DB returns the underlying database connection.
func (a *BaseSQLAdapter) DB() *sql.DB {
	return a.db
}

// Default dialect details. Engines that deviate override these.

// Placeholder returns the ?-style bind marker used by MySQL and SQLite.
func (a *BaseSQLAdapter) Placeholder(int) string {
	return "?"
}

// QuoteIdentifier quotes an identifier with double quotes per the SQL standard.
func (a *BaseSQLAdapter) QuoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// SupportsRowLocking reports row locking support; most engines have it.
func (a *BaseSQLAdapter) SupportsRowLocking() bool {
	return true
}

// LockingClause returns the standard row locking suffix.
func (a *BaseSQLAdapter) LockingClause() string {
	return "FOR UPDATE"
}

// LimitAll returns "" because standard OFFSET does not require a LIMIT.
func (a *BaseSQLAdapter) LimitAll() string {
	return ""
}

// DefaultTxOptions returns default transaction options.
func (a *BaseSQLAdapter) DefaultTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	}
}

// Common error checking methods. Concrete adapters override these with
// driver-typed checks; the string fallbacks below catch what escapes them.
func (a *BaseSQLAdapter) IsConnectionError(err error) bool {
	return errMatchesAny(err,
		"connection refused",
		"connection reset",
		"connection closed",
		"network is unreachable",
		"timeout",
		"driver: bad connection",
	)
}

func (a *BaseSQLAdapter) IsTimeoutError(err error) bool {
	return errMatchesAny(err,
		"timeout",
		"context deadline exceeded",
		"context canceled",
	)
}

func (a *BaseSQLAdapter) IsUniqueConstraintViolation(err error) bool {
	return errMatchesAny(err,
		"unique constraint",
		"duplicate key",
		"duplicate entry",
	)
}

func (a *BaseSQLAdapter) IsForeignKeyViolation(err error) bool {
	return errMatchesAny(err,
		"foreign key constraint",
		"violates foreign key",
	)
}

func errMatchesAny(err error, patterns ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// numberedPlaceholder builds a $n bind marker for engines that number
// their parameters.
func numberedPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}
