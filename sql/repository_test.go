package sqlstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarry"
	"quarry/sql/adapter"

	sqlstore "quarry/sql"
)

type user struct {
	ID     int64
	Name   string
	Email  *string
	Age    int64
	Active bool
}

type userCodec struct{}

func (userCodec) Dump(u *user) (map[string]any, error) {
	return map[string]any{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"age":    u.Age,
		"active": u.Active,
	}, nil
}

func (userCodec) Load(row sqlstore.RowScanner) (*user, error) {
	var u user
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.Active); err != nil {
		return nil, err
	}
	return &u, nil
}

// auditHooks mirrors every mutation into an audit table.
type auditHooks struct {
	failing bool
}

func (h auditHooks) statement(action, name string) []sqlstore.Statement {
	if h.failing {
		return []sqlstore.Statement{{SQL: "INSERT INTO no_such_table (x) VALUES (?)", Args: []any{action}}}
	}
	return []sqlstore.Statement{{
		SQL:  "INSERT INTO audit (action, name) VALUES (?, ?)",
		Args: []any{action, name},
	}}
}

func (h auditHooks) AfterAdd(u *user) []sqlstore.Statement    { return h.statement("add", u.Name) }
func (h auditHooks) AfterUpdate(u *user) []sqlstore.Statement { return h.statement("update", u.Name) }
func (h auditHooks) AfterDelete(quarry.F) []sqlstore.Statement {
	return h.statement("delete", "")
}

func openService(t *testing.T) *sqlstore.Service {
	t.Helper()
	ctx := context.Background()

	config := adapter.DefaultConfig()
	service, err := sqlstore.OpenWithName(ctx, "sqlite", &config)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, service.Close())
	})

	require.NoError(t, service.ExecSQL(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		age INTEGER NOT NULL,
		active BOOLEAN NOT NULL
	)`))
	require.NoError(t, service.ExecSQL(ctx,
		`CREATE TABLE audit (action TEXT NOT NULL, name TEXT NOT NULL)`))
	return service
}

func seed(t *testing.T, service *sqlstore.Service, repo *sqlstore.Repository[user]) {
	t.Helper()
	ctx := context.Background()
	h := service.Handle()

	aliceMail := "alice@example.org"
	bobMail := "bob@example.org"
	users := []user{
		{ID: 1, Name: "Alice", Email: &aliceMail, Age: 34, Active: true},
		{ID: 2, Name: "Bob", Email: &bobMail, Age: 41, Active: false},
		{ID: 3, Name: "Eve", Email: nil, Age: 28, Active: true},
	}
	for i := range users {
		require.NoError(t, repo.Add(ctx, h, &users[i]))
	}
}

func TestSQLRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{})
	seed(t, service, repo)
	h := service.Handle()

	got, err := repo.Get(ctx, h, quarry.Eq("name", "Alice"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(34), got.Age)
	require.NotNil(t, got.Email)
	assert.Equal(t, "alice@example.org", *got.Email)

	got, err = repo.Get(ctx, h, quarry.Eq("name", "Mallory"))
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := repo.Exists(ctx, h, quarry.Eq("active", true))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, h, quarry.Eq("age", 99))
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := repo.Count(ctx, h, quarry.Gt("age", 30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	total, err := repo.CountAll(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestSQLRepositoryGetMany(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{})
	seed(t, service, repo)
	h := service.Handle()

	users, err := repo.GetMany(ctx, h, quarry.
		Where(quarry.InRange("age", 20, 50)).
		OrderBy(quarry.Desc("age")).
		WithLimit(2))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[0].Name)
	assert.Equal(t, "Alice", users[1].Name)

	users, err = repo.GetMany(ctx, h, quarry.
		Where(quarry.Or{quarry.None("email"), quarry.EndsWith("email", ".org")}).
		OrderBy(quarry.Asc("name")))
	require.NoError(t, err)
	require.Len(t, users, 3)

	users, err = repo.GetMany(ctx, h, quarry.
		NewQuery().
		OrderBy(quarry.Asc("id")).
		WithOffset(2))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Eve", users[0].Name)
}

func TestSQLRepositoryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{})
	seed(t, service, repo)
	h := service.Handle()

	updated := user{ID: 1, Name: "Alice", Age: 35, Active: false}
	require.NoError(t, repo.Update(ctx, h, quarry.Eq("id", 1), &updated))

	got, err := repo.Get(ctx, h, quarry.Eq("id", 1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(35), got.Age)
	assert.Nil(t, got.Email)

	require.NoError(t, repo.Delete(ctx, h, quarry.Eq("active", true)))
	total, err := repo.CountAll(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// No-op mutations are not errors.
	require.NoError(t, repo.Update(ctx, h, quarry.Eq("id", 99), &updated))
	require.NoError(t, repo.Delete(ctx, h, quarry.Eq("id", 99)))
}

func TestSQLRepositoryLikeEscaping(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{})
	h := service.Handle()

	odd := user{ID: 10, Name: "100%_done", Age: 20, Active: true}
	plain := user{ID: 11, Name: "100xdone", Age: 21, Active: true}
	require.NoError(t, repo.Add(ctx, h, &odd))
	require.NoError(t, repo.Add(ctx, h, &plain))

	// Wildcards in the argument match literally.
	count, err := repo.Count(ctx, h, quarry.Contains("name", "%_"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// cardCodec reads a denormalized projection; it never writes.
type card struct {
	ID   int64
	Name string
	Bio  string
}

type cardCodec struct{}

func (cardCodec) Dump(*card) (map[string]any, error) {
	return nil, errors.New("cards are read only")
}

func (cardCodec) Load(row sqlstore.RowScanner) (*card, error) {
	var c card
	if err := row.Scan(&c.ID, &c.Name, &c.Bio); err != nil {
		return nil, err
	}
	return &c, nil
}

func TestSQLRepositoryBaseQuery(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	users := sqlstore.NewRepository[user](service, "users", userCodec{})
	seed(t, service, users)

	require.NoError(t, service.ExecSQL(ctx,
		`CREATE TABLE profiles (user_id INTEGER NOT NULL, bio TEXT NOT NULL)`))
	require.NoError(t, service.ExecSQL(ctx,
		`INSERT INTO profiles (user_id, bio) VALUES (1, 'cryptographer'), (2, 'adversary')`))

	cards := sqlstore.NewRepository[card](service, "users", cardCodec{},
		sqlstore.WithBaseQuery[card](
			`SELECT u.id, u.name, p.bio FROM users u JOIN profiles p ON p.user_id = u.id`))
	h := service.Handle()

	got, err := cards.Get(ctx, h, quarry.Eq("bio", "adversary"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bob", got.Name)

	// Filters, counts and existence probes all wrap the custom base.
	count, err := cards.CountAll(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	exists, err := cards.Exists(ctx, h, quarry.StartsWith("bio", "crypto"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSQLRepositoryTransaction(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{})
	seed(t, service, repo)

	err := service.Transaction(ctx, func(ctx context.Context, tx *sqlstore.Handle) error {
		locked, err := repo.GetForUpdate(ctx, tx, quarry.Eq("id", 1))
		if err != nil {
			return err
		}
		locked.Age++
		return repo.Update(ctx, tx, quarry.Eq("id", 1), locked)
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, service.Handle(), quarry.Eq("id", 1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(35), got.Age)
}

func TestSQLRepositoryTransactionRollback(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{})
	seed(t, service, repo)

	boom := errors.New("boom")
	err := service.Transaction(ctx, func(ctx context.Context, tx *sqlstore.Handle) error {
		if err := repo.Delete(ctx, tx, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	total, err := repo.CountAll(ctx, service.Handle())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestSQLRepositoryHooks(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{},
		sqlstore.WithHooks[user](auditHooks{}))
	h := service.Handle()

	u := user{ID: 1, Name: "Alice", Age: 34, Active: true}
	require.NoError(t, repo.Add(ctx, h, &u))
	require.NoError(t, repo.Update(ctx, h, quarry.Eq("id", 1), &u))
	require.NoError(t, repo.Delete(ctx, h, quarry.Eq("id", 1)))

	var audited int64
	row := service.DB().QueryRowContext(ctx, "SELECT COUNT(1) FROM audit")
	require.NoError(t, row.Scan(&audited))
	assert.Equal(t, int64(3), audited)
}

func TestSQLRepositoryHookFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	service := openService(t)
	repo := sqlstore.NewRepository[user](service, "users", userCodec{},
		sqlstore.WithHooks[user](auditHooks{failing: true}))
	h := service.Handle()

	u := user{ID: 1, Name: "Alice", Age: 34, Active: true}
	err := repo.Add(ctx, h, &u)
	require.Error(t, err)
	assert.True(t, quarry.IsQueryError(err))

	// The primary insert was undone with the failing hook.
	total, err := sqlstore.NewRepository[user](service, "users", userCodec{}).
		CountAll(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
