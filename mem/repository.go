package memstore

import (
	"context"

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

// Repository stores entities of type T as documents in one collection
// of an in-memory DB. It implements quarry.Repo[T, *DB].
type Repository[T any] struct {
	collection string
	fields     map[string]struct{}
}

// Ensure Repository satisfies the repository contract.
var _ quarry.Repo[struct{}, *DB] = (*Repository[struct{}])(nil)

// NewRepository creates a repository bound to the named collection.
// The collection springs into existence on first use.
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

// Get finds the first entity matching the filter, in storage order.
func (r *Repository[T]) Get(ctx context.Context, db *DB, f quarry.F) (*T, error) {
	if err := r.checkFilter(f); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, doc := range db.data[r.collection] {
		ok, err := document.Matches(doc, f)
		if err != nil {
			return nil, err
		}
		if ok {
			return document.Decode[T](doc)
		}
	}
	return nil, nil
}

// GetMany returns the entities selected by the query.
func (r *Repository[T]) GetMany(ctx context.Context, db *DB, q *quarry.Query) ([]T, error) {
	if q == nil {
		q = quarry.NewQuery()
	}
	if err := r.checkFilter(q.Filter); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	docs, err := document.Apply(db.data[r.collection], q)
	if err != nil {
		return nil, err
	}

	entities := make([]T, 0, len(docs))
	for _, doc := range docs {
		entity, err := document.Decode[T](doc)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *entity)
	}
	return entities, nil
}

// Add appends the entity to the collection.
func (r *Repository[T]) Add(ctx context.Context, db *DB, entity *T) error {
	doc, err := document.Encode(entity)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.data[r.collection] = append(db.data[r.collection], doc)
	return nil
}

// Update replaces the first entity matching the filter wholesale.
// Matching nothing is a no-op.
func (r *Repository[T]) Update(ctx context.Context, db *DB, f quarry.F, entity *T) error {
	if err := r.checkFilter(f); err != nil {
		return err
	}

	doc, err := document.Encode(entity)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	docs := db.data[r.collection]
	idx, err := findIndex(docs, f)
	if err != nil {
		return err
	}
	if idx >= 0 {
		docs[idx] = doc
	}
	return nil
}

// Delete removes every entity matching the filter, re-scanning after
// each removal so index shifts never skip a match.
func (r *Repository[T]) Delete(ctx context.Context, db *DB, f quarry.F) error {
	if err := r.checkFilter(f); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	docs := db.data[r.collection]
	for {
		idx, err := findIndex(docs, f)
		if err != nil {
			return err
		}
		if idx < 0 {
			break
		}
		docs = append(docs[:idx], docs[idx+1:]...)
	}
	db.data[r.collection] = docs
	return nil
}

// Exists reports whether any entity matches the filter.
func (r *Repository[T]) Exists(ctx context.Context, db *DB, f quarry.F) (bool, error) {
	entity, err := r.Get(ctx, db, f)
	if err != nil {
		return false, err
	}
	return entity != nil, nil
}

// Count counts the entities matching the filter.
func (r *Repository[T]) Count(ctx context.Context, db *DB, f quarry.F) (int64, error) {
	if err := r.checkFilter(f); err != nil {
		return 0, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int64
	for _, doc := range db.data[r.collection] {
		ok, err := document.Matches(doc, f)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// CountAll counts every entity in the collection.
func (r *Repository[T]) CountAll(ctx context.Context, db *DB) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return int64(len(db.data[r.collection])), nil
}

// GetForUpdate is identical to Get: there is no row lock in an
// in-memory collection, and isolation comes from the store-wide
// transaction serialization instead.
func (r *Repository[T]) GetForUpdate(ctx context.Context, db *DB, f quarry.F) (*T, error) {
	return r.Get(ctx, db, f)
}

func findIndex(docs []document.Doc, f quarry.F) (int, error) {
	for i, doc := range docs {
		ok, err := document.Matches(doc, f)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}
