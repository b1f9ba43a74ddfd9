package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/camarasaas/portal/pkg/clientip"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/tenant"
)

// KeyFunc extracts a rate limit key from a request.
type KeyFunc func(r *http.Request) string

// TenantClientKey keys buckets by scope, active tenant and client address,
// so one council's traffic never drains another's bucket.
func TenantClientKey(scope string) KeyFunc {
	return func(r *http.Request) string {
		owner := "landlord"
		if t, ok := tenant.FromContext(r.Context()); ok {
			owner = t.RoutingKey
		}
		host := clientip.FromContext(r.Context())
		if host == "" {
			var err error
			if host, _, err = net.SplitHostPort(r.RemoteAddr); err != nil {
				host = r.RemoteAddr
			}
		}
		return scope + ":" + owner + ":" + host
	}
}

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit headers. Store failures let the request through.
func Middleware(b *Bucket, keyFunc KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := b.Allow(r.Context(), keyFunc(r))
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed", logger.Error(err), logger.Component("ratelimit"))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if retry := int(result.RetryAfter().Seconds()); retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retry))
				}
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
