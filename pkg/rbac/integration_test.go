package rbac_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/internal/db"
	"github.com/camarasaas/portal/internal/testdb"
	"github.com/camarasaas/portal/pkg/pg"
	"github.com/camarasaas/portal/pkg/rbac"
	"github.com/camarasaas/portal/pkg/tenant"
)

func insertUser(t *testing.T, ctx context.Context, conn pg.Conn, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, 'x', now(), now())`,
		id, "User", email)
	require.NoError(t, err)
	return id
}

func TestIntegrationStore(t *testing.T) {
	landlord := testdb.Landlord(t)
	ctx := context.Background()

	router := pg.NewRouter(landlord)
	t.Cleanup(router.CloseAll)
	require.NoError(t, pg.NewAdmin(landlord, router).CreateDatabase(ctx, "tenant_cmx"))

	bindings := rbac.NewBindingTask(rbac.LandlordBindings(), rbac.TenantBindings())
	store := rbac.NewStore(router, bindings)
	migrator := pg.NewTenantMigrator(router, db.Tenant(), "schema_migrations", testdb.Discard())
	sw := tenant.NewSwitcher([]tenant.Task{router, bindings})

	operator := insertUser(t, ctx, landlord, "operador@portal.gov.br")
	require.NoError(t, store.CreateRole(ctx, rbac.Role{Name: "operator", Permissions: []string{"tenants.*"}}))
	require.NoError(t, store.AssignRole(ctx, operator, "operator"))

	err := sw.Run(ctx, &tenant.Tenant{RoutingKey: "cmx", Database: "tenant_cmx"}, func(ctx context.Context) error {
		require.NoError(t, migrator.Migrate(ctx))
		conn := router.Current(ctx)

		admin := insertUser(t, ctx, conn, "admin@cmx.gov")
		require.NoError(t, store.CreateRole(ctx, rbac.Role{Name: "admin", Permissions: []string{"*"}}))
		require.NoError(t, store.CreateRole(ctx, rbac.Role{Name: "clerk", Permissions: []string{"protocols.read", "protocols.read"}}))
		assert.ErrorIs(t, store.CreateRole(ctx, rbac.Role{Name: "clerk"}), rbac.ErrRoleExists)
		assert.ErrorIs(t, store.CreateRole(ctx, rbac.Role{Name: "bad", Permissions: []string{"a..b"}}), rbac.ErrInvalidPermission)

		require.NoError(t, store.AssignRole(ctx, admin, "admin"))
		require.NoError(t, store.AssignRole(ctx, admin, "clerk"))
		require.NoError(t, store.AssignRole(ctx, admin, "clerk"))
		assert.ErrorIs(t, store.AssignRole(ctx, admin, "operator"), rbac.ErrInvalidRole)

		roles, err := store.RolesOf(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin", "clerk"}, roles)

		ok, err := store.Can(ctx, admin, "sessions.schedule")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Can(ctx, operator, "tenants.create")
		require.NoError(t, err)
		assert.False(t, ok, "landlord grants are not visible inside a tenant")
		return nil
	})
	require.NoError(t, err)

	ok, err := store.Can(ctx, operator, "tenants.create")
	require.NoError(t, err)
	assert.True(t, ok)

	roles, err := store.RolesOf(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, []string{"operator"}, roles)
}
