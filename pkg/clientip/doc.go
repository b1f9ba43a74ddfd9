// Package clientip resolves the originating client address of a request.
//
// Forwarding headers are honoured only when the TCP peer is a trusted proxy,
// the same rule tenant host resolution follows for X-Forwarded-Host.
// X-Forwarded-For is walked right to left and the first hop that is not a
// trusted proxy wins; X-Real-IP is used when X-Forwarded-For is absent.
//
//	ips, err := clientip.New("10.0.0.0/8")
//	mux.Use(ips.Middleware)
//	...
//	ip := clientip.FromContext(r.Context())
package clientip
