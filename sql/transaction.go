package sqlstore

import (
	"context"
	"database/sql"

	"quarry"
)

// executor is the intersection of *sql.DB and *sql.Tx the repository
// operations need.
type executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Handle is the unit of work repository operations run against: the
// connection pool for ambient operations, or one open transaction.
type Handle struct {
	service *Service
	tx      *sql.Tx
}

// InTransaction reports whether the handle is bound to an open
// transaction.
func (h *Handle) InTransaction() bool {
	return h.tx != nil
}

func (h *Handle) executor() executor {
	if h.tx != nil {
		return h.tx
	}
	return h.service.db
}

// Handle returns an ambient handle executing directly against the pool.
func (s *Service) Handle() *Handle {
	return &Handle{service: s}
}

// Ensure Service satisfies the transaction contract.
var _ quarry.Beginner[*Handle] = (*Service)(nil)

// Transaction runs action inside one database transaction. The handle
// passed to action is bound to that transaction; every operation run
// through it commits or rolls back as a unit. An error from action
// rolls back and is returned unchanged.
func (s *Service) Transaction(ctx context.Context, action func(ctx context.Context, h *Handle) error) error {
	if s.db == nil {
		return quarry.WrapTransactionError(quarry.ErrStoreClosed, "begin")
	}

	tx, err := s.db.BeginTx(ctx, s.adapter.DefaultTxOptions())
	if err != nil {
		return quarry.WrapTransactionError(err, "begin")
	}

	if err := action(ctx, &Handle{service: s, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return quarry.WrapTransactionError(err, "commit")
	}
	return nil
}
