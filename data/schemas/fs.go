package schemas

import (
	"embed"
	"io/fs"
)

//go:embed sqlite_??_*.sql
var sqlitefs embed.FS

// SqliteFS holds the schema of the local history database
func SqliteFS() fs.FS {
	return &sqlitefs
}
