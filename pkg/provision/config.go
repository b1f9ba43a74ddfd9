package provision

// Config controls tenant naming and the links sent in invitations.
type Config struct {
	AppScheme string `env:"APP_SCHEME" envDefault:"https"`
	AppDomain string `env:"APP_DOMAIN"`
	AppPort   string `env:"APP_PORT"`
	ResetPath string `env:"RESET_PATH" envDefault:"/password/reset"`
	DBPrefix  string `env:"DB_PREFIX" envDefault:"tenant_"`
	AdminName string `env:"ADMIN_NAME" envDefault:"Administrador"`
	AdminRole string `env:"ADMIN_ROLE" envDefault:"admin"`
}
