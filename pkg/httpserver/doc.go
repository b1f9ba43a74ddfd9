// Package httpserver runs an http.Server until its context is canceled and
// then shuts it down gracefully. It also provides liveness and readiness
// handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
package httpserver
