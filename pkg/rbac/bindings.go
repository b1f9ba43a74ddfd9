package rbac

import (
	"context"

	"github.com/camarasaas/portal/pkg/tenant"
)

// Connection selects which pool the store queries.
type Connection string

const (
	ConnectionLandlord Connection = "landlord"
	ConnectionTenant   Connection = "tenant"
)

// Bindings names the connection and tables the store works against.
type Bindings struct {
	Connection           Connection
	RolesTable           string
	PermissionsTable     string
	UserRolesTable       string
	RolePermissionsTable string
}

// LandlordBindings are the bindings used on the central domain.
func LandlordBindings() Bindings {
	return defaultTables(ConnectionLandlord)
}

// TenantBindings are the bindings applied while a tenant is active.
func TenantBindings() Bindings {
	return defaultTables(ConnectionTenant)
}

func defaultTables(conn Connection) Bindings {
	return Bindings{
		Connection:           conn,
		RolesTable:           "roles",
		PermissionsTable:     "permissions",
		UserRolesTable:       "user_roles",
		RolePermissionsTable: "role_permissions",
	}
}

type bindingsSlot struct{}

// BindingTask swaps the rbac bindings with the active tenant.
type BindingTask struct {
	landlord Bindings
	tenant   Bindings
}

// NewBindingTask copies both bindings; later changes to the arguments do not
// leak into the task.
func NewBindingTask(landlord, tenantBindings Bindings) *BindingTask {
	return &BindingTask{landlord: landlord, tenant: tenantBindings}
}

func (b *BindingTask) Activate(_ context.Context, s *tenant.Scope, _ *tenant.Tenant) error {
	s.Store(bindingsSlot{}, b.tenant)
	return nil
}

func (b *BindingTask) Deactivate(_ context.Context, s *tenant.Scope) error {
	s.Clear(bindingsSlot{})
	return nil
}

// Current returns the bindings in effect for ctx.
func (b *BindingTask) Current(ctx context.Context) Bindings {
	if v, ok := tenant.Load[Bindings](ctx, bindingsSlot{}); ok {
		return v
	}
	return b.landlord
}

// Landlord returns the snapshot captured at construction.
func (b *BindingTask) Landlord() Bindings {
	return b.landlord
}
