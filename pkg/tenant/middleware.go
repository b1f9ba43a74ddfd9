package tenant

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware resolves the tenant owning each request and activates it for
// the duration of the request. Central traffic passes through with no tenant;
// unknown hosts are rejected rather than served landlord data.
// Deactivation runs on every exit path, including panics in next.
func Middleware(resolver *HostResolver, switcher *Switcher, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			res, err := resolver.Lookup(r)
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "tenant resolution failed",
					slog.String("host", res.Host),
					slog.Any("error", err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			if res.Tenant == nil {
				if res.Central {
					next.ServeHTTP(w, r)
					return
				}
				cfg.errorHandler(w, r, ErrTenantNotFound)
				return
			}

			ctx, err := switcher.Activate(r.Context(), res.Tenant)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			defer func() {
				if err := switcher.Deactivate(context.WithoutCancel(ctx)); err != nil {
					cfg.logger.ErrorContext(ctx, "tenant deactivation failed", slog.Any("error", err))
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant creates middleware that ensures a tenant is active in the context.
// Mount it on routes that must never be served as central traffic.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCentral creates middleware that rejects requests carrying an active tenant.
func RequireCentral() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); ok {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
