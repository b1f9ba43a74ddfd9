package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

func withScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// ScopeFromContext returns the scope attached by Switcher.Activate.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(contextKey{}).(*Scope)
	return s, ok && s != nil
}

// FromContext retrieves the active tenant from the context.
// Returns nil, false if no tenant is active.
func FromContext(ctx context.Context) (*Tenant, bool) {
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return nil, false
	}
	t := s.Tenant()
	return t, t != nil
}

// IDFromContext retrieves just the active tenant ID from the context.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return t.ID, true
}

// MustFromContext retrieves the active tenant from the context.
// Panics if no tenant is active. Use this only in handlers mounted
// behind RequireTenant.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// Load returns a typed slot value from the scope in ctx.
func Load[T any](ctx context.Context, key any) (T, bool) {
	var zero T
	s, ok := ScopeFromContext(ctx)
	if !ok {
		return zero, false
	}
	v, ok := s.Load(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// LoggerExtractor returns a logger ContextExtractor that adds the active
// tenant's ID and routing key to every record.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		t, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("tenant",
			slog.String("id", t.ID.String()),
			slog.String("routing_key", t.RoutingKey),
		), true
	}
}
