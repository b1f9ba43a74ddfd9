// Package portal serves the tenant-facing API on each council's subdomain.
// Every route expects an active tenant in the request context.
package portal
