package store

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS creatives (
		user_id TEXT NOT NULL,
		id TEXT NOT NULL,
		campaign_id TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL,
		creative_data TEXT NOT NULL DEFAULT '{}',
		metrics TEXT NOT NULL DEFAULT '{}',
		style_cluster TEXT NOT NULL DEFAULT '',
		utility_score REAL NOT NULL DEFAULT 0,
		rank_position INTEGER NOT NULL DEFAULT 0,
		mutation_parent_id TEXT NOT NULL DEFAULT '',
		mutation_key TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_creatives_user_recency ON creatives(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS genomes (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regret_memory (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		creative_id TEXT NOT NULL,
		tier INTEGER NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		style_cluster TEXT NOT NULL DEFAULT '',
		roas REAL NOT NULL DEFAULT 0,
		spend REAL NOT NULL DEFAULT 0,
		volatility_score REAL NOT NULL DEFAULT 0,
		severity REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_regret_user_recency ON regret_memory(user_id, created_at);

	CREATE TABLE IF NOT EXISTS mutation_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		creative_id TEXT NOT NULL,
		campaign_id TEXT NOT NULL DEFAULT '',
		mutation_key TEXT NOT NULL,
		mutations TEXT NOT NULL DEFAULT '[]',
		mutation_score REAL NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		rank_before INTEGER NOT NULL DEFAULT 0,
		applied INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mutation_events_user ON mutation_events(user_id, created_at);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS creatives (
		user_id TEXT NOT NULL,
		id TEXT NOT NULL,
		campaign_id TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL,
		creative_data TEXT NOT NULL DEFAULT '{}',
		metrics TEXT NOT NULL DEFAULT '{}',
		style_cluster TEXT NOT NULL DEFAULT '',
		utility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		rank_position INTEGER NOT NULL DEFAULT 0,
		mutation_parent_id TEXT NOT NULL DEFAULT '',
		mutation_key TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_creatives_user_recency ON creatives(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS genomes (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regret_memory (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		creative_id TEXT NOT NULL,
		tier INTEGER NOT NULL,
		platform TEXT NOT NULL DEFAULT '',
		style_cluster TEXT NOT NULL DEFAULT '',
		roas DOUBLE PRECISION NOT NULL DEFAULT 0,
		spend DOUBLE PRECISION NOT NULL DEFAULT 0,
		volatility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		severity DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_regret_user_recency ON regret_memory(user_id, created_at);

	CREATE TABLE IF NOT EXISTS mutation_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		creative_id TEXT NOT NULL,
		campaign_id TEXT NOT NULL DEFAULT '',
		mutation_key TEXT NOT NULL,
		mutations TEXT NOT NULL DEFAULT '[]',
		mutation_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		rank_before INTEGER NOT NULL DEFAULT 0,
		applied BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mutation_events_user ON mutation_events(user_id, created_at);
`

func schemaFor(dialect string) string {
	if dialect == BackendPostgres {
		return postgresSchema
	}
	return sqliteSchema
}
