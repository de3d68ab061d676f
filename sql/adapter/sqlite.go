package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"quarry"
)

// SQLiteAdapter implements the Adapter interface for SQLite.
type SQLiteAdapter struct {
	*BaseSQLAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter.
func NewSQLiteAdapter() *SQLiteAdapter {
	return &SQLiteAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("sqlite3", "sqlite"),
	}
}

// Connect establishes a connection to SQLite.
func (a *SQLiteAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	connStr := a.ConnectionString(config)

	// SQLite serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 1
	}

	db, err := a.BaseSQLAdapter.Connect(ctx, config, connStr)
	if err != nil {
		return nil, err
	}

	// Foreign keys are off by default in SQLite.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, quarry.WrapConnectionError(err, "pragma", "sqlite3", connStr)
	}

	return db, nil
}

// ConnectionString constructs a SQLite connection string. The database
// lives in FilePath; an empty path selects an in-memory database.
func (a *SQLiteAdapter) ConnectionString(config *Config) string {
	dbPath := config.FilePath
	if dbPath == "" {
		dbPath = ":memory:"
	} else if !filepath.IsAbs(dbPath) && !strings.HasPrefix(dbPath, ":") {
		dbPath = filepath.Clean(dbPath)
	}

	var params []string
	for key, value := range config.Options {
		params = append(params, fmt.Sprintf("%s=%s", key, value))
	}

	if len(params) > 0 {
		return fmt.Sprintf("%s?%s", dbPath, strings.Join(params, "&"))
	}

	return dbPath
}

// SupportsRowLocking reports false: SQLite locks the whole database,
// not rows, and rejects FOR UPDATE.
func (a *SQLiteAdapter) SupportsRowLocking() bool {
	return false
}

// LockingClause returns "" because SQLite has no row locking syntax.
func (a *SQLiteAdapter) LockingClause() string {
	return ""
}

// LimitAll returns "-1", SQLite's "no limit" value, required when an
// offset is used without a limit.
func (a *SQLiteAdapter) LimitAll() string {
	return "-1"
}

// DefaultTxOptions returns default transaction options for SQLite.
func (a *SQLiteAdapter) DefaultTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelSerializable, // SQLite default
		ReadOnly:  false,
	}
}

// IsUniqueConstraintViolation checks for SQLITE_CONSTRAINT_UNIQUE.
func (a *SQLiteAdapter) IsUniqueConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsForeignKeyViolation checks for SQLITE_CONSTRAINT_FOREIGNKEY.
func (a *SQLiteAdapter) IsForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return a.BaseSQLAdapter.IsForeignKeyViolation(err)
}

// IsConnectionError checks for SQLite lock and open failures.
func (a *SQLiteAdapter) IsConnectionError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy ||
			sqliteErr.Code == sqlite3.ErrLocked ||
			sqliteErr.Code == sqlite3.ErrCantOpen
	}
	return a.BaseSQLAdapter.IsConnectionError(err)
}
