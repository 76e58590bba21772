package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// sqlStore implements Store over database/sql. The SQLite and PostgreSQL
// backends share it; only the driver, placeholder style, and DDL differ.
type sqlStore struct {
	db       *sql.DB
	dialect  string
	openFunc func() (*sql.DB, error)
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != BackendPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Init(ctx context.Context) error {
	if s.db == nil {
		db, err := s.openFunc()
		if err != nil {
			return shared.NewStoreError("failed to open database", map[string]interface{}{"error": err.Error()})
		}
		s.db = db
	}
	if err := s.db.PingContext(ctx); err != nil {
		return shared.NewStoreError("failed to ping database", map[string]interface{}{"error": err.Error()})
	}
	if _, err := s.db.ExecContext(ctx, schemaFor(s.dialect)); err != nil {
		return shared.NewStoreError("failed to create schema", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// ============================================================================
// Creatives
// ============================================================================

func (s *sqlStore) UpsertCreative(ctx context.Context, c shared.Creative) error {
	dataJSON, err := json.Marshal(c.CreativeData)
	if err != nil {
		dataJSON = []byte("{}")
	}
	metricsJSON, err := json.Marshal(c.Metrics)
	if err != nil {
		metricsJSON = []byte("{}")
	}

	now := shared.Now()
	createdAt := c.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}

	query := `
		INSERT INTO creatives (user_id, id, campaign_id, platform, creative_data, metrics,
			style_cluster, utility_score, rank_position, mutation_parent_id, mutation_key,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			campaign_id = excluded.campaign_id,
			platform = excluded.platform,
			creative_data = excluded.creative_data,
			metrics = excluded.metrics,
			style_cluster = excluded.style_cluster,
			utility_score = excluded.utility_score,
			rank_position = excluded.rank_position,
			mutation_parent_id = excluded.mutation_parent_id,
			mutation_key = excluded.mutation_key,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		c.UserID, c.ID, c.CampaignID, string(c.Platform), string(dataJSON), string(metricsJSON),
		c.StyleCluster, c.UtilityScore, c.RankPosition, c.MutationParentID, c.MutationKey,
		createdAt, now)
	if err != nil {
		return shared.NewStoreError("failed to upsert creative", map[string]interface{}{
			"creative_id": c.ID, "error": err.Error(),
		})
	}
	return nil
}

func (s *sqlStore) GetCreative(ctx context.Context, userID, id string) (*shared.Creative, error) {
	query := `
		SELECT user_id, id, campaign_id, platform, creative_data, metrics, style_cluster,
			utility_score, rank_position, mutation_parent_id, mutation_key, created_at
		FROM creatives WHERE user_id = ? AND id = ?
	`
	row := s.db.QueryRowContext(ctx, s.rebind(query), userID, id)
	c, err := scanCreative(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.NewStoreError("failed to read creative", map[string]interface{}{
			"creative_id": id, "error": err.Error(),
		})
	}
	return c, nil
}

func (s *sqlStore) RecentCreatives(ctx context.Context, userID string, limit int) ([]shared.Creative, error) {
	query := `
		SELECT user_id, id, campaign_id, platform, creative_data, metrics, style_cluster,
			utility_score, rank_position, mutation_parent_id, mutation_key, created_at
		FROM creatives WHERE user_id = ?
		ORDER BY updated_at DESC, created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, limit)
	if err != nil {
		return nil, shared.NewStoreError("failed to query recent creatives", map[string]interface{}{"error": err.Error()})
	}
	defer rows.Close()

	results := make([]shared.Creative, 0, limit)
	for rows.Next() {
		c, err := scanCreative(rows)
		if err != nil {
			continue
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCreative(row rowScanner) (*shared.Creative, error) {
	var c shared.Creative
	var platform string
	var dataJSON, metricsJSON string

	err := row.Scan(&c.UserID, &c.ID, &c.CampaignID, &platform, &dataJSON, &metricsJSON,
		&c.StyleCluster, &c.UtilityScore, &c.RankPosition, &c.MutationParentID,
		&c.MutationKey, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Platform = shared.Platform(platform)
	if dataJSON != "" {
		json.Unmarshal([]byte(dataJSON), &c.CreativeData)
	}
	if metricsJSON != "" {
		json.Unmarshal([]byte(metricsJSON), &c.Metrics)
	}
	return &c, nil
}

// ============================================================================
// Genomes
// ============================================================================

func (s *sqlStore) GetGenome(ctx context.Context, userID string) (*shared.Genome, error) {
	query := `SELECT data FROM genomes WHERE user_id = ?`
	var dataJSON string
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID).Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.NewStoreError("failed to read genome", map[string]interface{}{
			"user_id": userID, "error": err.Error(),
		})
	}

	var g shared.Genome
	if err := json.Unmarshal([]byte(dataJSON), &g); err != nil {
		return nil, shared.NewStoreError("failed to decode genome", map[string]interface{}{
			"user_id": userID, "error": err.Error(),
		})
	}
	return &g, nil
}

func (s *sqlStore) PutGenome(ctx context.Context, g shared.Genome) error {
	dataJSON, err := json.Marshal(g)
	if err != nil {
		return shared.NewStoreError("failed to encode genome", map[string]interface{}{"error": err.Error()})
	}

	query := `
		INSERT INTO genomes (user_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query), g.UserID, string(dataJSON), shared.Now())
	if err != nil {
		return shared.NewStoreError("failed to write genome", map[string]interface{}{
			"user_id": g.UserID, "error": err.Error(),
		})
	}
	return nil
}

// ============================================================================
// Regret Memory
// ============================================================================

func (s *sqlStore) InsertRegret(ctx context.Context, entry shared.RegretEntry) error {
	query := `
		INSERT INTO regret_memory (id, user_id, creative_id, tier, platform, style_cluster,
			roas, spend, volatility_score, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		entry.ID, entry.UserID, entry.CreativeID, entry.Tier,
		string(entry.Context.Platform), entry.Context.StyleCluster,
		entry.Context.ROAS, entry.Context.Spend,
		entry.VolatilityScore, entry.Severity, entry.CreatedAt)
	if err != nil {
		return shared.NewStoreError("failed to insert regret entry", map[string]interface{}{
			"creative_id": entry.CreativeID, "error": err.Error(),
		})
	}
	return nil
}

func (s *sqlStore) RecentRegrets(ctx context.Context, userID string, limit int) ([]shared.RegretEntry, error) {
	query := `
		SELECT id, user_id, creative_id, tier, platform, style_cluster,
			roas, spend, volatility_score, severity, created_at
		FROM regret_memory WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, limit)
	if err != nil {
		return nil, shared.NewStoreError("failed to query regret memory", map[string]interface{}{"error": err.Error()})
	}
	defer rows.Close()

	results := make([]shared.RegretEntry, 0, limit)
	for rows.Next() {
		var entry shared.RegretEntry
		var platform string
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.CreativeID, &entry.Tier,
			&platform, &entry.Context.StyleCluster, &entry.Context.ROAS,
			&entry.Context.Spend, &entry.VolatilityScore, &entry.Severity, &entry.CreatedAt)
		if err != nil {
			continue
		}
		entry.Context.Platform = shared.Platform(platform)
		results = append(results, entry)
	}
	return results, rows.Err()
}

// ============================================================================
// Mutation Events
// ============================================================================

func (s *sqlStore) InsertMutationEvent(ctx context.Context, event shared.MutationEvent) error {
	mutationsJSON, err := json.Marshal(event.Mutations)
	if err != nil {
		mutationsJSON = []byte("[]")
	}

	query := `
		INSERT INTO mutation_events (id, user_id, creative_id, campaign_id, mutation_key,
			mutations, mutation_score, source, rank_before, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		event.ID, event.UserID, event.CreativeID, event.CampaignID, event.MutationKey,
		string(mutationsJSON), event.MutationScore, string(event.Source),
		event.RankBefore, event.Applied, event.CreatedAt)
	if err != nil {
		return shared.NewStoreError("failed to insert mutation event", map[string]interface{}{
			"mutation_key": event.MutationKey, "error": err.Error(),
		})
	}
	return nil
}

func (s *sqlStore) RecentMutationEvents(ctx context.Context, userID string, limit int) ([]shared.MutationEvent, error) {
	query := `
		SELECT id, user_id, creative_id, campaign_id, mutation_key, mutations,
			mutation_score, source, rank_before, applied, created_at
		FROM mutation_events WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, limit)
	if err != nil {
		return nil, shared.NewStoreError("failed to query mutation events", map[string]interface{}{"error": err.Error()})
	}
	defer rows.Close()

	results := make([]shared.MutationEvent, 0, limit)
	for rows.Next() {
		var event shared.MutationEvent
		var source, mutationsJSON string
		err := rows.Scan(&event.ID, &event.UserID, &event.CreativeID, &event.CampaignID,
			&event.MutationKey, &mutationsJSON, &event.MutationScore, &source,
			&event.RankBefore, &event.Applied, &event.CreatedAt)
		if err != nil {
			continue
		}
		event.Source = shared.MutationSource(source)
		json.Unmarshal([]byte(mutationsJSON), &event.Mutations)
		results = append(results, event)
	}
	return results, rows.Err()
}

// ============================================================================
// Stats
// ============================================================================

func (s *sqlStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"creatives", &stats.Creatives},
		{"genomes", &stats.Genomes},
		{"regret_memory", &stats.RegretEntries},
		{"mutation_events", &stats.MutationEvents},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return stats, shared.NewStoreError("failed to count rows", map[string]interface{}{
				"table": c.table, "error": err.Error(),
			})
		}
	}
	return stats, nil
}
