package store

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// NewSQLiteStore creates a SQLite-backed store. An empty path or ":memory:"
// opens an in-process database, which is convenient for tests and the
// doctor command.
func NewSQLiteStore(path string) Store {
	if path == "" {
		path = ":memory:"
	}
	return &sqlStore{
		dialect: BackendSQLite,
		openFunc: func() (*sql.DB, error) {
			db, err := sql.Open("sqlite", path)
			if err != nil {
				return nil, err
			}
			// The engine issues short interleaved reads and writes; a
			// single connection avoids SQLITE_BUSY on the write path.
			db.SetMaxOpenConns(1)
			return db, nil
		},
	}
}
