package auth

import "time"

// Config holds authentication settings shared by landlord and tenants.
type Config struct {
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"60m"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
}
