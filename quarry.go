// Package quarry provides a storage-agnostic data-access layer: a single
// repository contract for typed CRUD, filtered search, counting and
// transactional locking against interchangeable backends.
//
// The core abstractions live at the root level and backend-specific
// implementations live in sub-packages:
//
//   - quarry/mem: an in-memory document store with snapshot-restore
//     transactions, suitable for tests and prototyping.
//   - quarry/doc: a persistent JSON-document store on BadgerDB with
//     native transactions.
//   - quarry/sql: a relational store on database/sql with pluggable
//     driver adapters (PostgreSQL, MySQL, SQLite).
//
// Filters and queries are built once with the constructors in this
// package and evaluated by whichever backend the repository is bound
// to; the call site never knows which backend is in use.
package quarry

import "context"

// Repo is the uniform operation surface every backend implements.
// T is the caller's entity type; H is the backend's handle type, either
// an ambient connection or an open transaction. Passing the handle
// explicitly is what lets a sequence of calls share one transaction.
type Repo[T any, H any] interface {
	// Get finds the first entity matching the filter, in storage order.
	// A missing entity is (nil, nil), never an error.
	Get(ctx context.Context, h H, f F) (*T, error)

	// GetMany returns the entities selected by the query, filtered,
	// then ordered, then offset, then limited, in that sequence.
	GetMany(ctx context.Context, h H, q *Query) ([]T, error)

	// Add appends a new entity. The engine enforces no uniqueness;
	// callers guard key uniqueness with filters.
	Add(ctx context.Context, h H, entity *T) error

	// Update replaces matching entities wholesale, never as a merge.
	// Document backends replace the first match in storage order; the
	// relational backend updates every matching row. Matching nothing
	// is a no-op, not an error.
	Update(ctx context.Context, h H, f F, entity *T) error

	// Delete removes every entity matching the filter.
	Delete(ctx context.Context, h H, f F) error

	// Exists reports whether any entity matches the filter.
	Exists(ctx context.Context, h H, f F) (bool, error)

	// Count counts the entities matching the filter.
	Count(ctx context.Context, h H, f F) (int64, error)

	// CountAll counts every entity in the repository.
	CountAll(ctx context.Context, h H) (int64, error)

	// GetForUpdate is Get with a row lock when the backend has one.
	// Inside a transaction the matched row stays locked against
	// concurrent reads-for-update until commit or rollback.
	GetForUpdate(ctx context.Context, h H, f F) (*T, error)
}

// Beginner starts units of work against one backend. The action
// receives a handle scoped to the transaction; if the action returns
// an error the transaction is rolled back before the error is
// surfaced, otherwise it is committed. Handles must not outlive the
// action.
type Beginner[H any] interface {
	Transaction(ctx context.Context, action func(ctx context.Context, h H) error) error
}
