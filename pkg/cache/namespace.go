package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/camarasaas/portal/pkg/tenant"
)

// LandlordPrefix namespaces keys outside of any tenant.
const LandlordPrefix = "landlord:"

type namespaceSlot struct{}

// TenantPrefix returns the key prefix of the tenant with the given id.
func TenantPrefix(id uuid.UUID) string {
	return "tenant:" + id.String() + ":"
}

// Namespace returns the key prefix in effect for ctx.
func Namespace(ctx context.Context) string {
	if p, ok := tenant.Load[string](ctx, namespaceSlot{}); ok {
		return p
	}
	return LandlordPrefix
}

// Key prefixes key with the namespace of ctx.
func Key(ctx context.Context, key string) string {
	return Namespace(ctx) + key
}
