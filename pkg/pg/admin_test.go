package pg_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/pkg/pg"
)

type fakeExecer struct {
	mu    sync.Mutex
	stmts []string
	err   error
	row   pgx.Row
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stmts = append(f.stmts, sql)
	return pgconn.CommandTag{}, f.err
}

func (f *fakeExecer) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stmts = append(f.stmts, sql)
	return f.row
}

type boolRow bool

func (b boolRow) Scan(dest ...any) error {
	*dest[0].(*bool) = bool(b)
	return nil
}

type closerSpy struct {
	closed []string
}

func (c *closerSpy) Close(database string) { c.closed = append(c.closed, database) }

func TestAdmin(t *testing.T) {
	t.Parallel()

	t.Run("create quotes the identifier", func(t *testing.T) {
		t.Parallel()

		conn := &fakeExecer{}
		require.NoError(t, pg.NewAdmin(conn, nil).CreateDatabase(context.Background(), "tenant_cmx"))
		assert.Equal(t, []string{`CREATE DATABASE "tenant_cmx"`}, conn.stmts)
	})

	t.Run("create maps duplicate database", func(t *testing.T) {
		t.Parallel()

		conn := &fakeExecer{err: &pgconn.PgError{Code: "42P04"}}
		err := pg.NewAdmin(conn, nil).CreateDatabase(context.Background(), "tenant_cmx")
		assert.ErrorIs(t, err, pg.ErrDatabaseExists)
	})

	t.Run("create wraps other failures", func(t *testing.T) {
		t.Parallel()

		conn := &fakeExecer{err: errors.New("permission denied")}
		err := pg.NewAdmin(conn, nil).CreateDatabase(context.Background(), "tenant_cmx")
		assert.ErrorIs(t, err, pg.ErrFailedToCreateDatabase)
		assert.NotErrorIs(t, err, pg.ErrDatabaseExists)
	})

	t.Run("rejects unsafe names", func(t *testing.T) {
		t.Parallel()

		conn := &fakeExecer{}
		admin := pg.NewAdmin(conn, nil)
		for _, name := range []string{"", "Tenant", `x"; DROP DATABASE landlord; --`, "tenant-cmx"} {
			assert.ErrorIs(t, admin.CreateDatabase(context.Background(), name), pg.ErrInvalidDatabaseName)
			assert.ErrorIs(t, admin.DropDatabase(context.Background(), name), pg.ErrInvalidDatabaseName)
		}
		assert.Empty(t, conn.stmts)
	})

	t.Run("drop closes routed pool first", func(t *testing.T) {
		t.Parallel()

		conn := &fakeExecer{}
		pools := &closerSpy{}
		require.NoError(t, pg.NewAdmin(conn, pools).DropDatabase(context.Background(), "tenant_cmx"))
		assert.Equal(t, []string{"tenant_cmx"}, pools.closed)
		assert.Equal(t, []string{`DROP DATABASE IF EXISTS "tenant_cmx" WITH (FORCE)`}, conn.stmts)
	})

	t.Run("exists", func(t *testing.T) {
		t.Parallel()

		conn := &fakeExecer{row: boolRow(true)}
		ok, err := pg.NewAdmin(conn, nil).DatabaseExists(context.Background(), "tenant_cmx")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "tenants_routing_key_key"}
	assert.True(t, pg.IsDuplicateKeyError(errors.Join(errors.New("insert"), dup)))
	assert.False(t, pg.IsDuplicateKeyError(nil))
	assert.Equal(t, "tenants_routing_key_key", pg.ConstraintName(dup))
	assert.Empty(t, pg.ConstraintName(errors.New("plain")))

	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.False(t, pg.IsNotFoundError(nil))
	assert.True(t, pg.IsDuplicateDatabaseError(&pgconn.PgError{Code: "42P04"}))
}

func TestParsePoolConfig(t *testing.T) {
	t.Parallel()

	_, err := pg.ParsePoolConfig(pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)

	_, err = pg.ParsePoolConfig(pg.Config{ConnectionString: "postgres://portal@db:notaport/landlord"})
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)

	cfg, err := pg.ParsePoolConfig(pg.Config{
		ConnectionString: "postgres://portal:secret@db:5432/landlord",
		MaxOpenConns:     8,
		MaxIdleConns:     20,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(8), cfg.MaxConns)
	assert.Equal(t, int32(8), cfg.MinConns)
	assert.Equal(t, "landlord", cfg.ConnConfig.Database)
}
