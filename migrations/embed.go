// Package migrations embeds SQL migration files for use at runtime.
// Migrations are embedded so they work regardless of working directory.
package migrations

import (
	"embed"
	"io/fs"
)

// FS is the embedded migrations filesystem. Each backend keeps its files
// in its own directory (postgres/001_dynamic_agents.sql, sqlite/...).
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Postgres returns the migrations for the Postgres store.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the migrations for the SQLite store.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(FS, dir)
	if err != nil {
		// Only reachable if the embed directive above is changed.
		panic(err)
	}
	return f
}
