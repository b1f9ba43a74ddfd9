package pg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camarasaas/portal/pkg/tenant"
)

// Conn is the query surface shared by pools, connections and transactions.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Opener opens a pool for a named database.
type Opener func(ctx context.Context, database string) (*pgxpool.Pool, error)

// poolSlot is the scope key under which the active tenant pool is stored.
type poolSlot struct{}

// Router hands out the connection pool of the active tenant, falling back to
// the landlord pool outside of a tenant scope. Tenant pools are opened on
// first use and kept until Close is called for their database.
type Router struct {
	landlord *pgxpool.Pool
	open     Opener
	logger   *slog.Logger

	mu     sync.Mutex
	pools  map[string]*pgxpool.Pool
	closed bool
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithOpener replaces the function used to open tenant pools.
func WithOpener(open Opener) RouterOption {
	return func(r *Router) {
		if open != nil {
			r.open = open
		}
	}
}

// WithTenantMaxConns caps the size of every tenant pool opened by the default opener.
func WithTenantMaxConns(n int32) RouterOption {
	return func(r *Router) {
		r.open = openFrom(r.landlord, n)
	}
}

// WithRouterLogger sets the logger used for pool lifecycle events.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRouter creates a router over the landlord pool. By default tenant pools
// reuse the landlord configuration with the database name replaced.
func NewRouter(landlord *pgxpool.Pool, opts ...RouterOption) *Router {
	r := &Router{
		landlord: landlord,
		open:     openFrom(landlord, 0),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		pools:    make(map[string]*pgxpool.Pool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func openFrom(landlord *pgxpool.Pool, maxConns int32) Opener {
	return func(ctx context.Context, database string) (*pgxpool.Pool, error) {
		return pgxpool.NewWithConfig(ctx, tenantPoolConfig(landlord.Config(), database, maxConns))
	}
}

// Activate implements tenant.Task. It points the scope at the tenant database.
func (r *Router) Activate(ctx context.Context, s *tenant.Scope, t *tenant.Tenant) error {
	pool, err := r.Pool(ctx, t.Database)
	if err != nil {
		return err
	}
	s.Store(poolSlot{}, pool)
	return nil
}

// Deactivate implements tenant.Task. The scope falls back to the landlord pool.
func (r *Router) Deactivate(_ context.Context, s *tenant.Scope) error {
	s.Clear(poolSlot{})
	return nil
}

// Current returns the pool every query in ctx should use.
func (r *Router) Current(ctx context.Context) *pgxpool.Pool {
	if pool, ok := tenant.Load[*pgxpool.Pool](ctx, poolSlot{}); ok {
		return pool
	}
	return r.landlord
}

// Landlord returns the landlord pool regardless of the active tenant.
func (r *Router) Landlord() *pgxpool.Pool {
	return r.landlord
}

// Pool returns the pool for database, opening it on first use.
func (r *Router) Pool(ctx context.Context, database string) (*pgxpool.Pool, error) {
	if database == "" {
		return nil, ErrInvalidDatabaseName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRouterClosed
	}
	if pool, ok := r.pools[database]; ok {
		return pool, nil
	}

	pool, err := r.open(ctx, database)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	r.pools[database] = pool
	r.logger.DebugContext(ctx, "tenant pool opened", slog.String("database", database))
	return pool, nil
}

// Databases lists the databases with an open pool.
func (r *Router) Databases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	return names
}

// Close closes and forgets the pool of database. It must be called before
// the database is dropped.
func (r *Router) Close(database string) {
	r.mu.Lock()
	pool, ok := r.pools[database]
	delete(r.pools, database)
	r.mu.Unlock()

	if ok {
		pool.Close()
	}
}

// CloseAll closes every tenant pool. The landlord pool is owned by the caller.
func (r *Router) CloseAll() {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[string]*pgxpool.Pool)
	r.closed = true
	r.mu.Unlock()

	for _, pool := range pools {
		pool.Close()
	}
}
