package sqlstore_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarry"
	"quarry/sql/adapter"

	sqlstore "quarry/sql"
)

const usersBase = `SELECT * FROM "users"`

func pgCompiler() *sqlstore.Compiler {
	return sqlstore.NewCompiler(adapter.NewPostgreSQLAdapter())
}

func TestCompileFilters(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	dec, _, err := apd.NewFromString("120.50")
	require.NoError(t, err)

	cases := []struct {
		name     string
		filter   quarry.F
		wantSQL  string
		wantArgs []any
	}{
		{
			"eq string",
			quarry.Eq("name", "Alice"),
			usersBase + ` WHERE "name" = $1`,
			[]any{"Alice"},
		},
		{
			"ne int",
			quarry.Ne("age", 30),
			usersBase + ` WHERE "age" != $1`,
			[]any{int64(30)},
		},
		{
			"ordered comparisons",
			quarry.And{quarry.Gte("age", 18), quarry.Lt("age", 65)},
			usersBase + ` WHERE ("age" >= $1 AND "age" < $2)`,
			[]any{int64(18), int64(65)},
		},
		{
			"timestamp",
			quarry.Lte("created_at", now),
			usersBase + ` WHERE "created_at" <= $1`,
			[]any{now},
		},
		{
			"decimal binds as text",
			quarry.Eq("balance", dec),
			usersBase + ` WHERE "balance" = $1`,
			[]any{"120.50"},
		},
		{
			"between",
			quarry.InRange("age", 18, 65),
			usersBase + ` WHERE "age" BETWEEN $1 AND $2`,
			[]any{int64(18), int64(65)},
		},
		{
			"in set",
			quarry.InSet("name", "Alice", "Bob"),
			usersBase + ` WHERE "name" IN ($1, $2)`,
			[]any{"Alice", "Bob"},
		},
		{
			"empty in set matches nothing",
			quarry.InSet[string]("name"),
			usersBase + ` WHERE FALSE`,
			nil,
		},
		{
			"contains escapes the argument",
			quarry.Contains("name", "50%_!"),
			usersBase + ` WHERE "name" LIKE $1 ESCAPE '!'`,
			[]any{"%50!%!_!!%"},
		},
		{
			"starts with",
			quarry.StartsWith("name", "Al"),
			usersBase + ` WHERE "name" LIKE $1 ESCAPE '!'`,
			[]any{"Al%"},
		},
		{
			"ends with",
			quarry.EndsWith("email", ".org"),
			usersBase + ` WHERE "email" LIKE $1 ESCAPE '!'`,
			[]any{"%.org"},
		},
		{
			"is null",
			quarry.None("deleted_at"),
			usersBase + ` WHERE "deleted_at" IS NULL`,
			nil,
		},
		{
			"not",
			quarry.Not{Child: quarry.Eq("name", "Alice")},
			usersBase + ` WHERE NOT ("name" = $1)`,
			[]any{"Alice"},
		},
		{
			"empty and is true",
			quarry.And{},
			usersBase + ` WHERE TRUE`,
			nil,
		},
		{
			"empty or is false",
			quarry.Or{},
			usersBase + ` WHERE FALSE`,
			nil,
		},
		{
			"nested boolean tree",
			quarry.And{
				quarry.Or{quarry.Eq("name", "Alice"), quarry.Eq("name", "Bob")},
				quarry.Not{Child: quarry.None("email")},
			},
			usersBase + ` WHERE (("name" = $1 OR "name" = $2) AND NOT ("email" IS NULL))`,
			[]any{"Alice", "Bob"},
		},
	}

	c := pgCompiler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := c.SelectFirst(usersBase, tc.filter, false)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSQL, st.SQL)
			assert.Equal(t, tc.wantArgs, st.Args)
		})
	}
}

func TestCompileNilFilter(t *testing.T) {
	st, err := pgCompiler().SelectFirst(usersBase, nil, false)
	require.NoError(t, err)
	assert.Equal(t, usersBase, st.SQL)
	assert.Empty(t, st.Args)
}

func TestCompileSelectQuery(t *testing.T) {
	q := quarry.Where(quarry.Eq("active", true)).
		OrderBy(quarry.Asc("name"), quarry.Desc("age")).
		WithLimit(10).
		WithOffset(20)

	st, err := pgCompiler().Select(usersBase, q)
	require.NoError(t, err)
	assert.Equal(t,
		usersBase+` WHERE "active" = $1 ORDER BY "name", "age" DESC LIMIT $2 OFFSET $3`,
		st.SQL)
	assert.Equal(t, []any{true, 10, 20}, st.Args)
}

func TestCompileNegativeBounds(t *testing.T) {
	q := quarry.NewQuery().WithLimit(-5).WithOffset(-3)

	st, err := pgCompiler().Select(usersBase, q)
	require.NoError(t, err)
	assert.Equal(t, usersBase+` LIMIT $1 OFFSET $2`, st.SQL)
	assert.Equal(t, []any{0, 0}, st.Args)
}

func TestCompileOffsetWithoutLimit(t *testing.T) {
	q := quarry.NewQuery().WithOffset(5)

	// PostgreSQL allows a bare OFFSET.
	st, err := pgCompiler().Select(usersBase, q)
	require.NoError(t, err)
	assert.Equal(t, usersBase+` OFFSET $1`, st.SQL)

	// MySQL and SQLite need a limit sentinel.
	st, err = sqlstore.NewCompiler(adapter.NewMySQLAdapter()).Select("SELECT * FROM `users`", q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` LIMIT 18446744073709551615 OFFSET ?", st.SQL)

	st, err = sqlstore.NewCompiler(adapter.NewSQLiteAdapter()).Select(usersBase, q)
	require.NoError(t, err)
	assert.Equal(t, usersBase+` LIMIT -1 OFFSET ?`, st.SQL)
}

func TestCompileDialects(t *testing.T) {
	f := quarry.Eq("name", "Alice")

	st, err := sqlstore.NewCompiler(adapter.NewMySQLAdapter()).SelectFirst("SELECT * FROM `users`", f, false)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` WHERE `name` = ?", st.SQL)

	st, err = sqlstore.NewCompiler(adapter.NewPgxAdapter()).SelectFirst(usersBase, f, false)
	require.NoError(t, err)
	assert.Equal(t, usersBase+` WHERE "name" = $1`, st.SQL)
}

func TestCompileForUpdate(t *testing.T) {
	f := quarry.Eq("id", 1)

	st, err := pgCompiler().SelectFirst(usersBase, f, true)
	require.NoError(t, err)
	assert.Equal(t, usersBase+` WHERE "id" = $1 FOR UPDATE`, st.SQL)

	// SQLite has no row locking; the clause is simply absent.
	st, err = sqlstore.NewCompiler(adapter.NewSQLiteAdapter()).SelectFirst(usersBase, f, true)
	require.NoError(t, err)
	assert.Equal(t, usersBase+` WHERE "id" = ?`, st.SQL)
}

func TestCompileInsert(t *testing.T) {
	st, err := pgCompiler().Insert("users", map[string]any{
		"name":   "Alice",
		"age":    int64(34),
		"active": true,
	})
	require.NoError(t, err)
	// Columns come out sorted, so equal rows compile identically.
	assert.Equal(t,
		`INSERT INTO "users" ("active", "age", "name") VALUES ($1, $2, $3)`,
		st.SQL)
	assert.Equal(t, []any{true, int64(34), "Alice"}, st.Args)

	_, err = pgCompiler().Insert("users", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, quarry.ErrInvalidQuery)
}

func TestCompileUpdate(t *testing.T) {
	st, err := pgCompiler().Update("users",
		map[string]any{"name": "Alice", "age": int64(35)},
		quarry.Eq("id", 7))
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "users" SET "age" = $1, "name" = $2 WHERE "id" = $3`,
		st.SQL)
	assert.Equal(t, []any{int64(35), "Alice", int64(7)}, st.Args)
}

func TestCompileDelete(t *testing.T) {
	st, err := pgCompiler().Delete("users", quarry.Eq("name", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE "name" = $1`, st.SQL)
	assert.Equal(t, []any{"Alice"}, st.Args)

	// A nil filter deletes everything.
	st, err = pgCompiler().Delete("users", nil)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users"`, st.SQL)
}

func TestCompileExistsAndCount(t *testing.T) {
	st, err := pgCompiler().Exists(usersBase, quarry.Eq("name", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT EXISTS (`+usersBase+` WHERE "name" = $1)`, st.SQL)

	st, err = pgCompiler().Count(usersBase, quarry.Gt("age", 30))
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(1) FROM (`+usersBase+` WHERE "age" > $1) AS q`, st.SQL)

	st, err = pgCompiler().Count(usersBase, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(1) FROM (`+usersBase+`) AS q`, st.SQL)
	assert.Empty(t, st.Args)
}
