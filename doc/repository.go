package docstore

import (
	"context"
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"

	"quarry"
	"quarry/document"
)

// RepoOption configures a repository.
type RepoOption func(*repoConfig)

type repoConfig struct {
	fields []string
}

// WithFields declares the set of fields entities of this repository
// carry. When set, a filter referencing any other field fails with an
// unknown-field error instead of silently matching nothing.
func WithFields(fields ...string) RepoOption {
	return func(c *repoConfig) {
		c.fields = fields
	}
}

// Repository stores entities of type T as JSON documents under one
// collection prefix. It implements quarry.Repo[T, *Handle].
type Repository[T any] struct {
	collection string
	fields     map[string]struct{}
}

// Ensure Repository satisfies the repository contract.
var _ quarry.Repo[struct{}, *Handle] = (*Repository[struct{}])(nil)

// NewRepository creates a repository bound to the named collection.
// Collection names must not contain '/'.
func NewRepository[T any](collection string, opts ...RepoOption) *Repository[T] {
	var cfg repoConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Repository[T]{collection: collection}
	if cfg.fields != nil {
		r.fields = make(map[string]struct{}, len(cfg.fields))
		for _, f := range cfg.fields {
			r.fields[f] = struct{}{}
		}
	}
	return r
}

func (r *Repository[T]) checkFilter(f quarry.F) error {
	if r.fields == nil {
		return nil
	}
	return document.ValidateFields(f, r.fields)
}

// scan visits the collection's documents in insertion order until the
// callback asks to stop.
func (r *Repository[T]) scan(txn *badger.Txn, visit func(id uint64, doc document.Doc) (stop bool, err error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = recordPrefix(r.collection)

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := item.Key()
		id := binary.BigEndian.Uint64(key[len(key)-8:])

		var doc document.Doc
		err := item.Value(func(val []byte) error {
			var err error
			doc, err = document.FromJSON(val)
			return err
		})
		if err != nil {
			return err
		}

		stop, err := visit(id, doc)
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// Get finds the first entity matching the filter, in insertion order.
func (r *Repository[T]) Get(ctx context.Context, h *Handle, f quarry.F) (*T, error) {
	if err := r.checkFilter(f); err != nil {
		return nil, err
	}

	var found *T
	err := h.view(func(txn *badger.Txn) error {
		return r.scan(txn, func(_ uint64, doc document.Doc) (bool, error) {
			ok, err := document.Matches(doc, f)
			if err != nil || !ok {
				return false, err
			}
			found, err = document.Decode[T](doc)
			return true, err
		})
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// GetMany returns the entities selected by the query.
func (r *Repository[T]) GetMany(ctx context.Context, h *Handle, q *quarry.Query) ([]T, error) {
	if q == nil {
		q = quarry.NewQuery()
	}
	if err := r.checkFilter(q.Filter); err != nil {
		return nil, err
	}

	var docs []document.Doc
	err := h.view(func(txn *badger.Txn) error {
		return r.scan(txn, func(_ uint64, doc document.Doc) (bool, error) {
			docs = append(docs, doc)
			return false, nil
		})
	})
	if err != nil {
		return nil, err
	}

	selected, err := document.Apply(docs, q)
	if err != nil {
		return nil, err
	}

	entities := make([]T, 0, len(selected))
	for _, doc := range selected {
		entity, err := document.Decode[T](doc)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *entity)
	}
	return entities, nil
}

// Add appends the entity to the collection under a fresh insertion id.
func (r *Repository[T]) Add(ctx context.Context, h *Handle, entity *T) error {
	doc, err := document.Encode(entity)
	if err != nil {
		return err
	}
	raw, err := document.ToJSON(doc)
	if err != nil {
		return err
	}

	id, err := h.backend.nextID(r.collection)
	if err != nil {
		return err
	}

	return h.update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r.collection, id), raw)
	})
}

// Update replaces the first entity matching the filter wholesale.
// Matching nothing is a no-op.
func (r *Repository[T]) Update(ctx context.Context, h *Handle, f quarry.F, entity *T) error {
	if err := r.checkFilter(f); err != nil {
		return err
	}

	doc, err := document.Encode(entity)
	if err != nil {
		return err
	}
	raw, err := document.ToJSON(doc)
	if err != nil {
		return err
	}

	return h.update(func(txn *badger.Txn) error {
		matched := false
		var matchedID uint64
		err := r.scan(txn, func(id uint64, candidate document.Doc) (bool, error) {
			ok, err := document.Matches(candidate, f)
			if err != nil || !ok {
				return false, err
			}
			matched, matchedID = true, id
			return true, nil
		})
		if err != nil || !matched {
			return err
		}
		return txn.Set(recordKey(r.collection, matchedID), raw)
	})
}

// Delete removes every entity matching the filter.
func (r *Repository[T]) Delete(ctx context.Context, h *Handle, f quarry.F) error {
	if err := r.checkFilter(f); err != nil {
		return err
	}

	return h.update(func(txn *badger.Txn) error {
		var matchedIDs []uint64
		err := r.scan(txn, func(id uint64, doc document.Doc) (bool, error) {
			ok, err := document.Matches(doc, f)
			if err != nil {
				return false, err
			}
			if ok {
				matchedIDs = append(matchedIDs, id)
			}
			return false, nil
		})
		if err != nil {
			return err
		}

		for _, id := range matchedIDs {
			if err := txn.Delete(recordKey(r.collection, id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Exists reports whether any entity matches the filter.
func (r *Repository[T]) Exists(ctx context.Context, h *Handle, f quarry.F) (bool, error) {
	entity, err := r.Get(ctx, h, f)
	if err != nil {
		return false, err
	}
	return entity != nil, nil
}

// Count counts the entities matching the filter.
func (r *Repository[T]) Count(ctx context.Context, h *Handle, f quarry.F) (int64, error) {
	if err := r.checkFilter(f); err != nil {
		return 0, err
	}

	var count int64
	err := h.view(func(txn *badger.Txn) error {
		return r.scan(txn, func(_ uint64, doc document.Doc) (bool, error) {
			ok, err := document.Matches(doc, f)
			if err != nil {
				return false, err
			}
			if ok {
				count++
			}
			return false, nil
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountAll counts every entity in the collection.
func (r *Repository[T]) CountAll(ctx context.Context, h *Handle) (int64, error) {
	var count int64
	err := h.view(func(txn *badger.Txn) error {
		return r.scan(txn, func(uint64, document.Doc) (bool, error) {
			count++
			return false, nil
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetForUpdate is Get inside the transaction's tracked read set:
// badger's snapshot isolation detects a conflicting write at commit
// time rather than blocking the read.
func (r *Repository[T]) GetForUpdate(ctx context.Context, h *Handle, f quarry.F) (*T, error) {
	return r.Get(ctx, h, f)
}
