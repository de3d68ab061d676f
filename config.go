package quarry

import (
	"time"
)

// Config contains configuration fields common to all backend adapters.
// Backend packages embed or consume it as appropriate; unused fields
// are ignored by backends they do not apply to.
type Config struct {
	// Basic connection info
	Type     string // adapter type (postgres, pgx, mysql, sqlite, badger, memory)
	Host     string
	Port     int
	Username string
	Password string
	Database string
	FilePath string // file-based backends (SQLite, Badger)

	// Connection pooling
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Timeouts
	ConnectTimeout time.Duration

	// Security
	SSLMode string

	// Backend-specific options
	Options map[string]string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            0, // backend-specific default
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		ConnectTimeout:  30 * time.Second,
		SSLMode:         "disable",
		Options:         make(map[string]string),
	}
}
