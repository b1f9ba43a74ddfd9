package auth

import (
	"context"

	"github.com/camarasaas/portal/pkg/tenant"
)

type selectionSlot struct{}

// GuardTask switches the auth Selection with the active tenant.
type GuardTask struct {
	landlord Selection
	tenant   Selection
}

// NewGuardTask captures the landlord selection and the selection to apply
// for tenants.
func NewGuardTask(landlord, tenantSel Selection) *GuardTask {
	return &GuardTask{landlord: landlord, tenant: tenantSel}
}

func (g *GuardTask) Activate(_ context.Context, s *tenant.Scope, _ *tenant.Tenant) error {
	s.Store(selectionSlot{}, g.tenant)
	return nil
}

// Deactivate drops the tenant overlay; Current falls back to the landlord snapshot.
func (g *GuardTask) Deactivate(_ context.Context, s *tenant.Scope) error {
	s.Clear(selectionSlot{})
	return nil
}

// Current returns the selection in effect for ctx.
func (g *GuardTask) Current(ctx context.Context) Selection {
	if sel, ok := tenant.Load[Selection](ctx, selectionSlot{}); ok {
		return sel
	}
	return g.landlord
}

// Landlord returns the snapshot captured at construction.
func (g *GuardTask) Landlord() Selection {
	return g.landlord
}
