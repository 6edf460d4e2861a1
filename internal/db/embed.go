package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the embedded migrations filesystem. Production
// always migrates from the binary; there is no on-disk migrations
// directory to drift from.
func MigrationsFS() fs.FS {
	return migrationsFS
}
