package sqlstore_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarry"
	"quarry/sql/adapter"

	sqlstore "quarry/sql"
)

// openPostgres connects to the PostgreSQL pointed at by the
// QUARRY_TEST_PG_* environment, or skips the test when unset.
func openPostgres(t *testing.T) *sqlstore.Service {
	t.Helper()

	host := os.Getenv("QUARRY_TEST_PG_HOST")
	if host == "" {
		t.Skip("QUARRY_TEST_PG_HOST not set")
	}

	config := adapter.DefaultConfig()
	config.Host = host
	config.Port = 5432
	if port := os.Getenv("QUARRY_TEST_PG_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		require.NoError(t, err)
		config.Port = n
	}
	config.Database = envOr("QUARRY_TEST_PG_DB", "postgres")
	config.Username = envOr("QUARRY_TEST_PG_USER", "postgres")
	config.Password = os.Getenv("QUARRY_TEST_PG_PASSWORD")

	ctx := context.Background()
	service, err := sqlstore.OpenWithName(ctx, "postgres", &config)
	require.NoError(t, err)

	require.NoError(t, service.ExecSQL(ctx, `DROP TABLE IF EXISTS quarry_users`))
	require.NoError(t, service.ExecSQL(ctx, `CREATE TABLE quarry_users (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		age BIGINT NOT NULL,
		active BOOLEAN NOT NULL
	)`))
	t.Cleanup(func() {
		_ = service.ExecSQL(context.Background(), `DROP TABLE IF EXISTS quarry_users`)
		require.NoError(t, service.Close())
	})
	return service
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := openPostgres(t)
	repo := sqlstore.NewRepository[user](service, "quarry_users", userCodec{})
	h := service.Handle()

	u := user{ID: 1, Name: "Alice", Age: 34, Active: true}
	require.NoError(t, repo.Add(ctx, h, &u))

	got, err := repo.Get(ctx, h, quarry.And{
		quarry.Eq("name", "Alice"),
		quarry.None("email"),
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(34), got.Age)

	count, err := repo.Count(ctx, h, quarry.InRange("age", 30, 40))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestPostgresLockedRead verifies that a second unit of work reading
// the same row for update blocks until the first commits, and then
// observes the committed mutation.
func TestPostgresLockedRead(t *testing.T) {
	ctx := context.Background()
	service := openPostgres(t)
	repo := sqlstore.NewRepository[user](service, "quarry_users", userCodec{})

	u := user{ID: 1, Name: "Alice", Age: 34, Active: true}
	require.NoError(t, repo.Add(ctx, service.Handle(), &u))

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)

	go func() {
		first <- service.Transaction(ctx, func(ctx context.Context, tx *sqlstore.Handle) error {
			row, err := repo.GetForUpdate(ctx, tx, quarry.Eq("id", 1))
			if err != nil {
				return err
			}
			row.Age++
			if err := repo.Update(ctx, tx, quarry.Eq("id", 1), row); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	observed := make(chan int64, 1)
	second := make(chan error, 1)
	go func() {
		second <- service.Transaction(ctx, func(ctx context.Context, tx *sqlstore.Handle) error {
			row, err := repo.GetForUpdate(ctx, tx, quarry.Eq("id", 1))
			if err != nil {
				return err
			}
			observed <- row.Age
			return nil
		})
	}()

	// The second read is blocked on the row lock while the first
	// transaction stays open.
	select {
	case <-observed:
		t.Fatal("locked read returned while the locking transaction was still open")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	assert.Equal(t, int64(35), <-observed)
}
