package docstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"quarry"
)

// Handle is the repository handle for the document backend: either the
// ambient database, where every operation runs in its own badger
// transaction, or one open transaction shared by a unit of work.
type Handle struct {
	backend *Backend
	txn     *badger.Txn
}

// Handle returns the ambient handle for the backend.
func (b *Backend) Handle() *Handle {
	return &Handle{backend: b}
}

// Ensure Backend satisfies the transaction contract.
var _ quarry.Beginner[*Handle] = (*Backend)(nil)

// Transaction runs the action within one writable badger transaction.
// The transaction commits when the action succeeds and is discarded
// when it fails, with the action's error returned unchanged. Badger
// detects conflicting concurrent transactions at commit time; a
// conflicting commit fails with a transaction error.
func (b *Backend) Transaction(ctx context.Context, action func(ctx context.Context, h *Handle) error) error {
	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	if err := action(ctx, &Handle{backend: b, txn: txn}); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return quarry.WrapTransactionError(err, "commit")
	}
	return nil
}

func (h *Handle) view(fn func(txn *badger.Txn) error) error {
	if h.txn != nil {
		return fn(h.txn)
	}
	return h.backend.db.View(fn)
}

func (h *Handle) update(fn func(txn *badger.Txn) error) error {
	if h.txn != nil {
		return fn(h.txn)
	}
	return h.backend.db.Update(fn)
}
