package sqlstore

import (
	"context"

	"quarry"
)

// Repository implements the storage contract for entities of type T
// kept in one table. Row mapping is delegated to the codec; the
// repository compiles filters against the service's adapter dialect
// and runs them on whatever handle the caller passes.
//
// A filter that references a column the table does not have fails with
// the engine's error at execution time.
type Repository[T any] struct {
	service   *Service
	table     string
	baseQuery string
	codec     Codec[T]
	hooks     Hooks[T]
	compiler  *Compiler
}

// Ensure Repository satisfies the storage contract.
var _ quarry.Repo[struct{}, *Handle] = (*Repository[struct{}])(nil)

// RepoOption configures a Repository.
type RepoOption[T any] func(*Repository[T])

// WithBaseQuery overrides the SELECT the repository reads through. The
// default reads every column of the table; a custom base query can
// join or project as long as its columns match what the codec loads.
func WithBaseQuery[T any](query string) RepoOption[T] {
	return func(r *Repository[T]) {
		r.baseQuery = query
	}
}

// WithHooks attaches follow-up statements to mutations.
func WithHooks[T any](hooks Hooks[T]) RepoOption[T] {
	return func(r *Repository[T]) {
		r.hooks = hooks
	}
}

// NewRepository creates a repository over table using codec for row
// mapping.
func NewRepository[T any](service *Service, table string, codec Codec[T], opts ...RepoOption[T]) *Repository[T] {
	r := &Repository[T]{
		service:  service,
		table:    table,
		codec:    codec,
		hooks:    NoHooks[T]{},
		compiler: NewCompiler(service.adapter),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.baseQuery == "" {
		r.baseQuery = "SELECT * FROM " + service.adapter.QuoteIdentifier(table)
	}
	return r
}

// Get returns the first entity matching f, or nil when none matches.
func (r *Repository[T]) Get(ctx context.Context, h *Handle, f quarry.F) (*T, error) {
	return r.selectFirst(ctx, h, f, false)
}

// GetForUpdate returns the first entity matching f and locks its row
// for the remainder of the handle's transaction. On engines without
// row locking it behaves like Get.
func (r *Repository[T]) GetForUpdate(ctx context.Context, h *Handle, f quarry.F) (*T, error) {
	return r.selectFirst(ctx, h, f, true)
}

func (r *Repository[T]) selectFirst(ctx context.Context, h *Handle, f quarry.F, forUpdate bool) (*T, error) {
	st, err := r.compiler.SelectFirst(r.baseQuery, f, forUpdate)
	if err != nil {
		return nil, err
	}

	rows, err := h.executor().QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, quarry.WrapQueryError(err, "get", r.table, st.SQL, st.Args)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, quarry.WrapQueryError(err, "get", r.table, st.SQL, st.Args)
		}
		return nil, nil
	}

	entity, err := r.codec.Load(rows)
	if err != nil {
		return nil, quarry.WrapQueryError(err, "get", r.table, st.SQL, st.Args)
	}
	return entity, nil
}

// GetMany returns every entity matching q, honoring its ordering,
// offset and limit.
func (r *Repository[T]) GetMany(ctx context.Context, h *Handle, q *quarry.Query) ([]T, error) {
	st, err := r.compiler.Select(r.baseQuery, q)
	if err != nil {
		return nil, err
	}

	rows, err := h.executor().QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, quarry.WrapQueryError(err, "get_many", r.table, st.SQL, st.Args)
	}
	defer rows.Close()

	var entities []T
	for rows.Next() {
		entity, err := r.codec.Load(rows)
		if err != nil {
			return nil, quarry.WrapQueryError(err, "get_many", r.table, st.SQL, st.Args)
		}
		entities = append(entities, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, quarry.WrapQueryError(err, "get_many", r.table, st.SQL, st.Args)
	}
	return entities, nil
}

// Add inserts entity.
func (r *Repository[T]) Add(ctx context.Context, h *Handle, entity *T) error {
	row, err := r.codec.Dump(entity)
	if err != nil {
		return quarry.WrapQueryError(err, "add", r.table, "", nil)
	}
	st, err := r.compiler.Insert(r.table, row)
	if err != nil {
		return err
	}
	return r.mutate(ctx, h, "add", append([]Statement{st}, r.hooks.AfterAdd(entity)...))
}

// Update replaces the columns of every record matching f with entity's
// values. Matching nothing is not an error.
func (r *Repository[T]) Update(ctx context.Context, h *Handle, f quarry.F, entity *T) error {
	row, err := r.codec.Dump(entity)
	if err != nil {
		return quarry.WrapQueryError(err, "update", r.table, "", nil)
	}
	st, err := r.compiler.Update(r.table, row, f)
	if err != nil {
		return err
	}
	return r.mutate(ctx, h, "update", append([]Statement{st}, r.hooks.AfterUpdate(entity)...))
}

// Delete removes every record matching f. Matching nothing is not an
// error.
func (r *Repository[T]) Delete(ctx context.Context, h *Handle, f quarry.F) error {
	st, err := r.compiler.Delete(r.table, f)
	if err != nil {
		return err
	}
	return r.mutate(ctx, h, "delete", append([]Statement{st}, r.hooks.AfterDelete(f)...))
}

// mutate executes a mutation's statements in one unit of work. On an
// ambient handle, multiple statements are wrapped in a transaction so
// hook failures undo the primary statement.
func (r *Repository[T]) mutate(ctx context.Context, h *Handle, operation string, stmts []Statement) error {
	if !h.InTransaction() && len(stmts) > 1 {
		return r.service.Transaction(ctx, func(ctx context.Context, tx *Handle) error {
			return r.mutate(ctx, tx, operation, stmts)
		})
	}
	for _, st := range stmts {
		if _, err := h.executor().ExecContext(ctx, st.SQL, st.Args...); err != nil {
			return quarry.WrapQueryError(err, operation, r.table, st.SQL, st.Args)
		}
	}
	return nil
}

// Exists reports whether any record matches f.
func (r *Repository[T]) Exists(ctx context.Context, h *Handle, f quarry.F) (bool, error) {
	st, err := r.compiler.Exists(r.baseQuery, f)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := h.executor().QueryRowContext(ctx, st.SQL, st.Args...).Scan(&exists); err != nil {
		return false, quarry.WrapQueryError(err, "exists", r.table, st.SQL, st.Args)
	}
	return exists, nil
}

// Count returns the number of records matching f.
func (r *Repository[T]) Count(ctx context.Context, h *Handle, f quarry.F) (int64, error) {
	return r.count(ctx, h, "count", f)
}

// CountAll returns the number of records in the table.
func (r *Repository[T]) CountAll(ctx context.Context, h *Handle) (int64, error) {
	return r.count(ctx, h, "count_all", nil)
}

func (r *Repository[T]) count(ctx context.Context, h *Handle, operation string, f quarry.F) (int64, error) {
	st, err := r.compiler.Count(r.baseQuery, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := h.executor().QueryRowContext(ctx, st.SQL, st.Args...).Scan(&n); err != nil {
		return 0, quarry.WrapQueryError(err, operation, r.table, st.SQL, st.Args)
	}
	return n, nil
}
