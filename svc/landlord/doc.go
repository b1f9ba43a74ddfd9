// Package landlord serves the administrative tenant API on the central
// domains: provisioning, deletion, settings updates and listing.
//
//	r.With(tenant.RequireCentral()).Mount("/", landlord.New(provisioner, registry, landlord.WithLogger(log)).Routes())
package landlord
