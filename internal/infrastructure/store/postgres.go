package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewPostgresStore creates a PostgreSQL-backed store from the config.
func NewPostgresStore(cfg Config) Store {
	return &sqlStore{
		dialect: BackendPostgres,
		openFunc: func() (*sql.DB, error) {
			db, err := sql.Open("postgres", buildConnectionString(cfg))
			if err != nil {
				return nil, err
			}
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(time.Hour)
			return db, nil
		},
	}
}

// buildConnectionString constructs a PostgreSQL connection string.
func buildConnectionString(cfg Config) string {
	host := cfg.PGHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PGPort
	if port == 0 {
		port = 5432
	}
	sslMode := "disable"
	if cfg.PGSSL {
		sslMode = "require"
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		host, port, cfg.PGUser, cfg.PGDatabase, sslMode,
	)
	if cfg.PGPassword != "" {
		connStr += fmt.Sprintf(" password=%s", cfg.PGPassword)
	}
	return connStr
}
