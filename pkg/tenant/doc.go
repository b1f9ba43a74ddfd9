// Package tenant provides the tenant context switching engine: host based
// tenant resolution, an ordered set of switch tasks, and HTTP middleware
// tying both to a request's lifetime.
//
// # Architecture
//
// The package is built around three core concepts:
//
// 1. HostResolver - Maps the request host (or a forwarded host from a trusted
// proxy) to a routing key under one of the configured central domains, and
// loads the tenant from a Registry.
//
// 2. Switcher - Activates a tenant by running each Task in order. Tasks keep
// their overlay (database connection, auth guard, permission bindings, cache
// namespace) inside a Scope carried by the context, so every request sees its
// own tenant even though the tasks are shared by the whole process.
//
// 3. Middleware - Resolves, activates, serves and always deactivates.
//
// # Usage
//
//	resolver, err := tenant.NewHostResolver(registry,
//		tenant.WithCentralDomains("portal.gov.br"),
//		tenant.WithTrustedProxies("10.0.0.0/8"),
//		tenant.WithCache(tenant.NewMemoryCache(500)),
//	)
//	if err != nil {
//		return err
//	}
//
//	switcher := tenant.NewSwitcher([]tenant.Task{router, guards, bindings, settings})
//	r.Use(tenant.Middleware(resolver, switcher))
//
// Work outside HTTP (jobs, provisioning) uses Switcher.Run, which pairs
// activation and deactivation around a function.
//
// # Ordering
//
// Deactivation runs tasks in activation order. Tasks must therefore be
// independent of each other; none may read another task's slot during
// Deactivate.
//
// # Error Handling
//
//   - ErrResolution: the registry could not be queried (5xx)
//   - ErrTenantNotFound: no tenant owns a non-central host (404)
//   - ErrSwitchTask: a task failed; matched by *TaskError
//   - ErrNestedActivation: activating over an active scope
//   - ErrNotActive: deactivating an idle scope
package tenant
