// Package db embeds the SQL migrations for the landlord and tenant databases.
package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations
var migrations embed.FS

// Landlord returns the landlord migration set rooted at its directory.
func Landlord() fs.FS {
	return sub("migrations/landlord")
}

// Tenant returns the migration set applied to every tenant database.
func Tenant() fs.FS {
	return sub("migrations/tenant")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		// Only reachable if the embedded tree is renamed.
		panic(err)
	}
	return fsys
}
