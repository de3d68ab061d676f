// Package memstore provides the in-memory backend: named collections
// of documents held in process memory, with coarse snapshot-restore
// transactions.
//
// Store state is guarded by a single readers-writer lock, so reads
// share access and writes serialize. There is no row-level isolation;
// transactions additionally serialize behind a store-wide mutex, which
// is what makes locked reads safe (only one unit of work proceeds at
// a time).
package memstore

import (
	"context"
	"sync"

	"quarry"
	"quarry/document"
)

// DB holds every collection of an in-memory store. It doubles as the
// repository handle: operations inside a transaction receive the same
// *DB, and atomicity comes from the snapshot taken around the action.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data map[string][]document.Doc
}

// New creates an empty in-memory store.
func New() *DB {
	return &DB{data: make(map[string][]document.Doc)}
}

// Ensure DB satisfies the transaction contract.
var _ quarry.Beginner[*DB] = (*DB)(nil)

// Transaction runs the action as a unit of work. The whole store is
// deep-copied before the action starts; if the action returns an
// error, the live store is replaced with that copy and the action's
// error is returned unchanged. On success, commit is a no-op because
// the action already mutated the live store.
//
// Transactions are serialized store-wide: a second unit of work,
// including one that only reads for update, waits until the first
// finishes.
func (db *DB) Transaction(ctx context.Context, action func(ctx context.Context, h *DB) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snapshot := db.snapshot()

	if err := action(ctx, db); err != nil {
		db.restore(snapshot)
		return err
	}
	return nil
}

func (db *DB) snapshot() map[string][]document.Doc {
	db.mu.Lock()
	defer db.mu.Unlock()

	copied := make(map[string][]document.Doc, len(db.data))
	for name, docs := range db.data {
		items := make([]document.Doc, len(docs))
		for i, doc := range docs {
			items[i] = document.Clone(doc)
		}
		copied[name] = items
	}
	return copied
}

func (db *DB) restore(snapshot map[string][]document.Doc) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data = snapshot
}
