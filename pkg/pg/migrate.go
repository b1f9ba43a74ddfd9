package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// logger is the subset of *slog.Logger used to report migration progress.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Migrate applies every pending migration found at the root of fsys to the
// database behind pool, recording versions in table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, table string, log logger) error {
	if table == "" {
		table = "schema_migrations"
	}

	// goose speaks database/sql; the bridge shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration handle", slog.Any("error", err))
		}
	}()

	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	provider, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		log.InfoContext(ctx, "migration applied",
			slog.String("database", pool.Config().ConnConfig.Database),
			slog.Int64("version", res.Source.Version),
			slog.Duration("duration", res.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// TenantMigrator applies the tenant migration set to whichever database is
// current in ctx.
type TenantMigrator struct {
	router *Router
	fsys   fs.FS
	table  string
	log    logger
}

// NewTenantMigrator creates a migrator for the tenant schema in fsys.
func NewTenantMigrator(router *Router, fsys fs.FS, table string, log logger) *TenantMigrator {
	return &TenantMigrator{router: router, fsys: fsys, table: table, log: log}
}

// Migrate runs the tenant migrations against the current database. Calling
// it outside a tenant scope is refused so the landlord schema is never touched.
func (m *TenantMigrator) Migrate(ctx context.Context) error {
	pool := m.router.Current(ctx)
	if pool == m.router.Landlord() {
		return errors.Join(ErrFailedToApplyMigrations, errors.New("no tenant database is active"))
	}
	return Migrate(ctx, pool, m.fsys, m.table, m.log)
}
