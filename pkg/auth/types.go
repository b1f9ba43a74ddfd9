package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the current guard's users table.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Guard names the provider of authenticatable users.
type Guard struct {
	Name       string
	UsersTable string
}

// PasswordBroker names the store of password reset tokens and their lifetime.
type PasswordBroker struct {
	Name        string
	TokensTable string
	TTL         time.Duration
}

// Selection is the default guard and broker in effect.
type Selection struct {
	Guard  Guard
	Broker PasswordBroker
}

// LandlordSelection is the selection used on the central domain.
func LandlordSelection(ttl time.Duration) Selection {
	return Selection{
		Guard:  Guard{Name: "landlord", UsersTable: "users"},
		Broker: PasswordBroker{Name: "landlord", TokensTable: "password_reset_tokens", TTL: ttl},
	}
}

// TenantSelection is the selection used while a tenant is active.
func TenantSelection(ttl time.Duration) Selection {
	return Selection{
		Guard:  Guard{Name: "tenant", UsersTable: "users"},
		Broker: PasswordBroker{Name: "tenant", TokensTable: "password_reset_tokens", TTL: ttl},
	}
}
