package sqlstore

import (
	"quarry"
)

// RowScanner is the subset of database/sql row types a codec loads
// from. Both *sql.Row and *sql.Rows satisfy it.
type RowScanner interface {
	Scan(dest ...any) error
}

// Codec maps entities to and from table rows. A repository is generic
// over the entity type but knows nothing about its columns; the codec
// carries that knowledge.
type Codec[T any] interface {
	// Dump returns the entity's column values keyed by column name.
	// The repository decides column order, so map iteration order does
	// not matter.
	Dump(entity *T) (map[string]any, error)

	// Load scans one row, in the base query's column order, into a new
	// entity.
	Load(row RowScanner) (*T, error)
}

// Hooks contributes follow-up statements to mutations. Each returned
// statement runs in the same unit of work as the primary statement and
// any failure fails the whole operation. Typical uses are audit rows
// and denormalized side tables.
type Hooks[T any] interface {
	// AfterAdd returns statements to run after inserting entity.
	AfterAdd(entity *T) []Statement

	// AfterUpdate returns statements to run after updating entity.
	AfterUpdate(entity *T) []Statement

	// AfterDelete returns statements to run after deleting the records
	// matching f.
	AfterDelete(f quarry.F) []Statement
}

// NoHooks is a Hooks implementation contributing nothing.
type NoHooks[T any] struct{}

func (NoHooks[T]) AfterAdd(*T) []Statement          { return nil }
func (NoHooks[T]) AfterUpdate(*T) []Statement       { return nil }
func (NoHooks[T]) AfterDelete(quarry.F) []Statement { return nil }
