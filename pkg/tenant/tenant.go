package tenant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant represents one isolated council (câmara) with its own database,
// routing key and settings document.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	RoutingKey string    `json:"routing_key"`
	Database   string    `json:"database"`
	AdminEmail string    `json:"admin_email"`
	TaxID      string    `json:"tax_id"`
	Settings   Settings  `json:"settings"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Settings is an opaque key-value document used for branding and feature toggles.
type Settings map[string]any

// Clone returns a shallow copy of the settings document.
func (s Settings) Clone() Settings {
	if s == nil {
		return Settings{}
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Registry loads tenant records from the landlord store.
type Registry interface {
	// FindByRoutingKey returns the tenant owning the given routing key.
	// Returns ErrTenantNotFound if no tenant matches.
	FindByRoutingKey(ctx context.Context, routingKey string) (*Tenant, error)
}

// RegistryFunc is an adapter to allow the use of ordinary functions as a Registry.
type RegistryFunc func(ctx context.Context, routingKey string) (*Tenant, error)

// FindByRoutingKey calls the function.
func (f RegistryFunc) FindByRoutingKey(ctx context.Context, routingKey string) (*Tenant, error) {
	return f(ctx, routingKey)
}

// routingKeyRegex matches a single DNS label.
var routingKeyRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeRoutingKey lowercases the key and validates it as a DNS label.
func NormalizeRoutingKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !routingKeyRegex.MatchString(key) {
		return "", ErrInvalidRoutingKey
	}
	return key, nil
}

// DatabaseName derives the physical database identifier from a routing key.
// The result is stable for a given prefix and key.
func DatabaseName(prefix, routingKey string) string {
	return prefix + strings.ReplaceAll(routingKey, "-", "_")
}
