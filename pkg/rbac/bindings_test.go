package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camarasaas/portal/pkg/rbac"
	"github.com/camarasaas/portal/pkg/tenant"
)

func TestBindingTask(t *testing.T) {
	t.Parallel()

	t.Run("switches bindings with the tenant", func(t *testing.T) {
		t.Parallel()

		task := rbac.NewBindingTask(rbac.LandlordBindings(), rbac.TenantBindings())
		sw := tenant.NewSwitcher([]tenant.Task{task})

		assert.Equal(t, rbac.ConnectionLandlord, task.Current(context.Background()).Connection)

		ctx, err := sw.Activate(context.Background(), &tenant.Tenant{RoutingKey: "cmx", Database: "tenant_cmx"})
		require.NoError(t, err)
		assert.Equal(t, rbac.TenantBindings(), task.Current(ctx))

		require.NoError(t, sw.Deactivate(ctx))
		assert.Equal(t, rbac.LandlordBindings(), task.Current(ctx))
	})

	t.Run("snapshot ignores later changes", func(t *testing.T) {
		t.Parallel()

		landlord := rbac.LandlordBindings()
		task := rbac.NewBindingTask(landlord, rbac.TenantBindings())
		landlord.RolesTable = "mutated"

		assert.Equal(t, "roles", task.Landlord().RolesTable)
		assert.Equal(t, "roles", task.Current(context.Background()).RolesTable)
	})
}
