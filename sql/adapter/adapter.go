package adapter

import (
	"context"
	"database/sql"
	"time"

	"quarry"
)

// Adapter abstracts one SQL engine behind a uniform surface: connection
// handling, the dialect details statement compilation depends on, and
// driver-specific error classification.
type Adapter interface {
	// Name returns the adapter's unique identifier.
	Name() string

	// Connect establishes a connection to the database.
	Connect(ctx context.Context, config *Config) (*sql.DB, error)

	// ConnectionString builds the connection string from config.
	ConnectionString(config *Config) string

	// Dialect details used when compiling statements.

	// Placeholder returns the bind marker for the n-th parameter,
	// counted from 1 ($1, $2, ... for PostgreSQL; ? for MySQL/SQLite).
	Placeholder(n int) string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(identifier string) string

	// SupportsRowLocking reports whether the engine honors a row
	// locking clause on SELECT.
	SupportsRowLocking() bool

	// LockingClause returns the suffix appended to a SELECT that must
	// lock the rows it reads, or "" when the engine has none.
	LockingClause() string

	// LimitAll returns the LIMIT expression meaning "no limit", used
	// when a query requests an offset without a limit. Engines whose
	// OFFSET stands alone return "".
	LimitAll() string

	// DefaultTxOptions returns the engine's preferred transaction options.
	DefaultTxOptions() *sql.TxOptions

	// Error classification
	IsUniqueConstraintViolation(err error) bool
	IsForeignKeyViolation(err error) bool
	IsConnectionError(err error) bool

	// Close releases any resources held by the adapter.
	Close() error
}

// Config holds SQL adapter configuration.
// It extends the shared base config with SQL-specific fields.
type Config struct {
	quarry.Config

	// SQL-specific timeouts
	QueryTimeout time.Duration
	TxTimeout    time.Duration
}

// Option configures a SQL adapter.
type Option func(*Config)

// WithPooling configures connection pooling.
func WithPooling(maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) Option {
	return func(c *Config) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = maxLifetime
		c.ConnMaxIdleTime = maxIdleTime
	}
}

// WithTimeouts configures operation timeouts.
func WithTimeouts(connect, query, tx time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = connect
		c.QueryTimeout = query
		c.TxTimeout = tx
	}
}

// WithDatabase configures database connection.
func WithDatabase(host string, port int, username, password, database string) Option {
	return func(c *Config) {
		c.Host = host
		c.Port = port
		c.Username = username
		c.Password = password
		c.Database = database
	}
}

// WithSSL configures SSL settings.
func WithSSL(sslMode string) Option {
	return func(c *Config) {
		c.SSLMode = sslMode
	}
}

// WithFilePath configures the database file for file-backed engines.
func WithFilePath(path string) Option {
	return func(c *Config) {
		c.FilePath = path
	}
}

// DefaultConfig returns a SQL configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Config:       quarry.DefaultConfig(),
		QueryTimeout: 30 * time.Second,
		TxTimeout:    30 * time.Second,
	}
}
