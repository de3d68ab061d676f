package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter implements the Adapter interface for MySQL.
type MySQLAdapter struct {
	*BaseSQLAdapter
}

// NewMySQLAdapter creates a new MySQL adapter.
func NewMySQLAdapter() *MySQLAdapter {
	return &MySQLAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("mysql", "mysql"),
	}
}

// Connect establishes a connection to MySQL.
func (a *MySQLAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	connStr := a.ConnectionString(config)
	return a.BaseSQLAdapter.Connect(ctx, config, connStr)
}

// ConnectionString constructs a MySQL DSN.
// Format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
func (a *MySQLAdapter) ConnectionString(config *Config) string {
	var connStr strings.Builder

	if config.Username != "" {
		connStr.WriteString(config.Username)
		if config.Password != "" {
			connStr.WriteString(":")
			connStr.WriteString(config.Password)
		}
		connStr.WriteString("@")
	}

	if config.Host != "" || config.Port > 0 {
		connStr.WriteString("tcp(")
		if config.Host != "" {
			connStr.WriteString(config.Host)
		} else {
			connStr.WriteString("localhost")
		}
		if config.Port > 0 {
			fmt.Fprintf(&connStr, ":%d", config.Port)
		}
		connStr.WriteString(")")
	}

	connStr.WriteString("/")
	connStr.WriteString(config.Database)

	// parseTime makes the driver return time.Time for temporal columns.
	params := []string{"parseTime=true"}

	hasCharset := false
	for key := range config.Options {
		if strings.EqualFold(key, "charset") {
			hasCharset = true
			break
		}
	}
	if !hasCharset {
		params = append(params, "charset=utf8mb4")
	}

	for key, value := range config.Options {
		params = append(params, fmt.Sprintf("%s=%s", key, value))
	}

	connStr.WriteString("?")
	connStr.WriteString(strings.Join(params, "&"))

	return connStr.String()
}

// LimitAll returns MySQL's documented "all rows" limit, required when
// an offset is used without a limit.
func (a *MySQLAdapter) LimitAll() string {
	return "18446744073709551615"
}

// DefaultTxOptions returns MySQL-specific transaction options.
func (a *MySQLAdapter) DefaultTxOptions() *sql.TxOptions {
	return &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead, // MySQL default
		ReadOnly:  false,
	}
}

// QuoteIdentifier quotes a MySQL identifier with backticks.
func (a *MySQLAdapter) QuoteIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

// IsUniqueConstraintViolation checks for error 1062 (ER_DUP_ENTRY).
func (a *MySQLAdapter) IsUniqueConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsForeignKeyViolation checks for errors 1451/1452 (FK row violations).
func (a *MySQLAdapter) IsForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1451 || myErr.Number == 1452
	}
	return a.BaseSQLAdapter.IsForeignKeyViolation(err)
}
