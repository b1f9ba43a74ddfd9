// Package portal is a multi-tenant portal for municipal councils.
//
// Each council (tenant) lives in its own PostgreSQL database and is reached
// through a subdomain of a central domain, e.g. cmx.portal.gov.br. The
// landlord database keeps the tenant registry plus the operator accounts and
// roles.
//
// A request is served in three steps:
//
//	host ──► tenant.HostResolver ──► tenant.Switcher.Activate ──► handler ──► Deactivate
//
// Activation runs tenant.Task implementations in order. Each task moves one
// concern into the tenant's scope: pg.Router picks the tenant pool,
// auth.GuardTask selects the reset token tables, rbac.BindingTask the role
// tables and cache.SettingsTask loads the tenant settings. Deactivation
// returns every concern to its landlord value. Scopes live in the request
// context, so concurrent requests for different tenants never share state.
//
// Layout:
//
//	cmd/portal        server binary wiring everything from environment config
//	svc/landlord      operator API over the central domain (tenant lifecycle)
//	svc/portal        tenant API (settings, password reset)
//	pkg/tenant        resolution, scopes, switch tasks and HTTP middleware
//	pkg/provision     create, update and delete tenants with rollback
//	pkg/registry      landlord tenant registry on PostgreSQL
//	pkg/pg            pools, routing, migrations and database admin
//	handler, pkg/...  shared HTTP, auth, rbac, cache, mail and support code
package portal
