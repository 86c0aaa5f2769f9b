// Package migrations embeds the goose schema migrations, one directory per
// supported database dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var all embed.FS

// SQLite returns the migration set for the SQLite backend.
func SQLite() fs.FS {
	sub, err := fs.Sub(all, "sqlite")
	if err != nil {
		panic(err)
	}
	return sub
}

// Postgres returns the migration set for the PostgreSQL backend.
func Postgres() fs.FS {
	sub, err := fs.Sub(all, "postgres")
	if err != nil {
		panic(err)
	}
	return sub
}
