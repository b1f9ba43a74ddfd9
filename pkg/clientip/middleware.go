package clientip

import "net/http"

// Middleware resolves the client IP once and stores it in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req.WithContext(WithIP(req.Context(), r.IP(req))))
	})
}
