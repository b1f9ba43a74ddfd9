// Package config parses environment variables into typed structs.
//
// Values come from the process environment, optionally seeded from .env
// files through godotenv. Each struct type is parsed once and cached.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
package config
