// Package pg wraps PostgreSQL access with pgx/v5: landlord pool bootstrap,
// per-tenant pool routing, physical database administration and goose
// migrations over embedded file systems.
//
// # Routing
//
// Router implements tenant.Task. While a tenant is active, Current returns a
// pool connected to that tenant's database; outside a tenant scope it returns
// the landlord pool. Pools are opened lazily and cached per database name.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	router := pg.NewRouter(pool, pg.WithTenantMaxConns(cfg.TenantMaxConns))
//	defer router.CloseAll()
//
//	switcher := tenant.NewSwitcher([]tenant.Task{router})
//	err = switcher.Run(ctx, t, func(ctx context.Context) error {
//		_, err := router.Current(ctx).Exec(ctx, "SELECT 1")
//		return err
//	})
//
// # Administration
//
// Admin issues CREATE DATABASE and DROP DATABASE through the landlord pool.
// Dropping closes the routed pool first so no idle connection keeps the
// database busy.
//
// # Migrations
//
// Migrate runs goose's Provider against an fs.FS, which is normally an
// embedded directory. TenantMigrator runs the tenant set against the
// database current in the context.
//
// # Error Handling
//
// IsDuplicateKeyError, IsDuplicateDatabaseError and IsNotFoundError classify
// driver errors; ConstraintName reports which unique constraint was hit.
package pg
