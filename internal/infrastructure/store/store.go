// Package store provides the persistence backends for creatives, genomes,
// regret memory, and mutation events. SQLite is the default backend;
// PostgreSQL and a pure in-memory backend are also available.
package store

import (
	"context"
	"os"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// Backend names accepted in configuration.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Store is the persistence contract shared by every backend. All reads that
// return a recency window order newest first.
type Store interface {
	Init(ctx context.Context) error
	Close() error

	UpsertCreative(ctx context.Context, c shared.Creative) error
	GetCreative(ctx context.Context, userID, id string) (*shared.Creative, error)
	RecentCreatives(ctx context.Context, userID string, limit int) ([]shared.Creative, error)

	// GetGenome returns nil with no error when the user has no genome yet.
	GetGenome(ctx context.Context, userID string) (*shared.Genome, error)
	PutGenome(ctx context.Context, g shared.Genome) error

	InsertRegret(ctx context.Context, entry shared.RegretEntry) error
	RecentRegrets(ctx context.Context, userID string, limit int) ([]shared.RegretEntry, error)

	InsertMutationEvent(ctx context.Context, event shared.MutationEvent) error
	RecentMutationEvents(ctx context.Context, userID string, limit int) ([]shared.MutationEvent, error)

	Stats(ctx context.Context) (Stats, error)
}

// Stats reports row counts per table for the doctor and store commands.
type Stats struct {
	Creatives      int `json:"creatives"`
	Genomes        int `json:"genomes"`
	RegretEntries  int `json:"regret_entries"`
	MutationEvents int `json:"mutation_events"`
}

// Config selects and configures a backend.
type Config struct {
	Backend    string
	SQLitePath string

	// PostgreSQL settings; unset fields fall back to PG* environment
	// variables.
	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGDatabase string
	PGSSL      bool
}

// ConfigFromEnv builds a Config from CE_* and PG* environment variables.
func ConfigFromEnv() Config {
	return Config{
		Backend:    getEnvOrDefault("CE_STORE", BackendSQLite),
		SQLitePath: getEnvOrDefault("CE_SQLITE_PATH", "creative-engine.db"),
		PGHost:     getEnvOrDefault("PGHOST", "localhost"),
		PGPort:     5432,
		PGUser:     getEnvOrDefault("PGUSER", "postgres"),
		PGPassword: os.Getenv("PGPASSWORD"),
		PGDatabase: os.Getenv("PGDATABASE"),
	}
}

// Open constructs the backend named by the config. The caller must Init it.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		return NewPostgresStore(cfg), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath), nil
	default:
		return nil, shared.NewValidationError("unknown store backend", map[string]interface{}{
			"backend": cfg.Backend,
		})
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
