// Package auth holds the authentication configuration that follows the
// active tenant, plus the user and password reset services built on it.
//
// # Guards and brokers
//
// A Selection names the users table (Guard) and the password reset table
// (PasswordBroker) that authentication uses. GuardTask is a tenant.Task: the
// landlord selection is captured once at construction, the tenant selection
// replaces it while a tenant is active, and deactivation restores the
// captured landlord value.
//
//	guards := auth.NewGuardTask(auth.LandlordSelection(ttl), auth.TenantSelection(ttl))
//	storage := auth.NewPostgresStorage(router, guards)
//	users := auth.NewUsers(storage, auth.WithBcryptCost(cfg.BcryptCost))
//	broker := auth.NewBroker(storage, guards)
//
// Every query goes to the connection current in the context and to the
// tables the current selection names, so the same services serve the
// landlord and every tenant.
//
// # Password reset
//
// Broker.CreateToken issues a random token, stores only its bcrypt hash and
// replaces any earlier token for the address. Broker.Reset checks the token
// against the broker TTL, updates the password and consumes the token in one
// transaction.
package auth
