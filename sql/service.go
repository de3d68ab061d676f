package sqlstore

import (
	"context"
	"database/sql"
	"log/slog"

	"quarry"
	"quarry/sql/adapter"
)

// Service wraps a SQL adapter and owns the connection pool. It hands
// out handles and transactions for repositories to run against.
type Service struct {
	adapter adapter.Adapter
	db      *sql.DB
	config  *adapter.Config
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new SQL service with the given adapter.
func NewService(adpt adapter.Adapter, config *adapter.Config, opts ...ServiceOption) *Service {
	s := &Service{
		adapter: adpt,
		config:  config,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes the database connection.
func (s *Service) Connect(ctx context.Context) error {
	connectCtx := ctx
	var cancel context.CancelFunc
	if s.config.ConnectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, s.config.ConnectTimeout)
		defer cancel()
	}

	db, err := s.adapter.Connect(connectCtx, s.config)
	if err != nil {
		return err
	}

	s.db = db
	s.logger.Debug("connected",
		"adapter", s.adapter.Name(),
		"host", s.config.Host,
		"database", s.config.Database)
	return nil
}

// DB returns the underlying database connection.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Adapter returns the underlying adapter.
func (s *Service) Adapter() adapter.Adapter {
	return s.adapter
}

// Close closes the database connection.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Stats returns database connection statistics.
func (s *Service) Stats() sql.DBStats {
	if s.db != nil {
		return s.db.Stats()
	}
	return sql.DBStats{}
}

// ExecSQL executes raw SQL (migrations, table creation).
func (s *Service) ExecSQL(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return quarry.WrapQueryError(err, "exec_sql", "", query, args)
	}
	return nil
}

// Open creates and connects a new SQL service using the given adapter.
func Open(ctx context.Context, adpt adapter.Adapter, config *adapter.Config, opts ...ServiceOption) (*Service, error) {
	service := NewService(adpt, config, opts...)
	if err := service.Connect(ctx); err != nil {
		return nil, err
	}
	return service, nil
}

// OpenWithName creates and connects a new SQL service using a
// registered adapter name.
func OpenWithName(ctx context.Context, adapterName string, config *adapter.Config, opts ...adapter.Option) (*Service, error) {
	for _, opt := range opts {
		opt(config)
	}

	adpt, err := adapter.Get(adapterName)
	if err != nil {
		return nil, quarry.WrapConnectionError(err, "get adapter", adapterName, config.Host)
	}

	return Open(ctx, adpt, config)
}
