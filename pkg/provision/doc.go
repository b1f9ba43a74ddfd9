// Package provision creates, updates and deletes tenants.
//
// Provision runs a fixed sequence of steps: register the tenant, create its
// database, activate it, migrate and seed the schema, create the
// administrator with a random password, assign the administrator role, issue
// a password setup token and mail the invitation. Each completed step pushes
// a compensation; any later failure unwinds them in reverse so either a fully
// usable tenant exists or nothing does. The tenant is always deactivated
// before compensations run.
package provision
