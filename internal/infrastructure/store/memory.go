package store

import (
	"context"
	"sort"
	"sync"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// MemoryStore is a pure in-memory Store used by tests and as a zero-setup
// fallback. Rows are deep-copied on the way in and out so callers can never
// alias stored state.
type MemoryStore struct {
	mu             sync.RWMutex
	creatives      map[string]map[string]storedCreative // user -> id -> row
	genomes        map[string]shared.Genome
	regrets        map[string][]shared.RegretEntry
	mutationEvents map[string][]shared.MutationEvent
	seq            int64
}

type storedCreative struct {
	creative  shared.Creative
	updatedAt int64
	seq       int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creatives:      make(map[string]map[string]storedCreative),
		genomes:        make(map[string]shared.Genome),
		regrets:        make(map[string][]shared.RegretEntry),
		mutationEvents: make(map[string][]shared.MutationEvent),
	}
}

// Init implements Store; the in-memory backend needs no setup.
func (ms *MemoryStore) Init(ctx context.Context) error { return nil }

// Close clears all stored state.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.creatives = make(map[string]map[string]storedCreative)
	ms.genomes = make(map[string]shared.Genome)
	ms.regrets = make(map[string][]shared.RegretEntry)
	ms.mutationEvents = make(map[string][]shared.MutationEvent)
	return nil
}

func (ms *MemoryStore) UpsertCreative(ctx context.Context, c shared.Creative) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.creatives[c.UserID] == nil {
		ms.creatives[c.UserID] = make(map[string]storedCreative)
	}
	if c.CreatedAt == 0 {
		if prev, ok := ms.creatives[c.UserID][c.ID]; ok {
			c.CreatedAt = prev.creative.CreatedAt
		} else {
			c.CreatedAt = shared.Now()
		}
	}
	ms.seq++
	ms.creatives[c.UserID][c.ID] = storedCreative{
		creative:  shared.CloneCreative(c),
		updatedAt: shared.Now(),
		seq:       ms.seq,
	}
	return nil
}

func (ms *MemoryStore) GetCreative(ctx context.Context, userID, id string) (*shared.Creative, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	row, ok := ms.creatives[userID][id]
	if !ok {
		return nil, nil
	}
	c := shared.CloneCreative(row.creative)
	return &c, nil
}

func (ms *MemoryStore) RecentCreatives(ctx context.Context, userID string, limit int) ([]shared.Creative, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rows := make([]storedCreative, 0, len(ms.creatives[userID]))
	for _, row := range ms.creatives[userID] {
		rows = append(rows, row)
	}
	// Newest activity first; the insert sequence breaks same-millisecond ties.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].updatedAt != rows[j].updatedAt {
			return rows[i].updatedAt > rows[j].updatedAt
		}
		return rows[i].seq > rows[j].seq
	})
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	results := make([]shared.Creative, 0, len(rows))
	for _, row := range rows {
		results = append(results, shared.CloneCreative(row.creative))
	}
	return results, nil
}

func (ms *MemoryStore) GetGenome(ctx context.Context, userID string) (*shared.Genome, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	g, ok := ms.genomes[userID]
	if !ok {
		return nil, nil
	}
	cloned := cloneGenome(g)
	return &cloned, nil
}

func (ms *MemoryStore) PutGenome(ctx context.Context, g shared.Genome) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.genomes[g.UserID] = cloneGenome(g)
	return nil
}

func (ms *MemoryStore) InsertRegret(ctx context.Context, entry shared.RegretEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.regrets[entry.UserID] = append(ms.regrets[entry.UserID], entry)
	return nil
}

func (ms *MemoryStore) RecentRegrets(ctx context.Context, userID string, limit int) ([]shared.RegretEntry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries := ms.regrets[userID]
	results := make([]shared.RegretEntry, 0, limit)
	// Entries are append-only, so newest-first is reverse insertion order.
	for i := len(entries) - 1; i >= 0; i-- {
		results = append(results, entries[i])
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

func (ms *MemoryStore) InsertMutationEvent(ctx context.Context, event shared.MutationEvent) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.mutationEvents[event.UserID] = append(ms.mutationEvents[event.UserID], event)
	return nil
}

func (ms *MemoryStore) RecentMutationEvents(ctx context.Context, userID string, limit int) ([]shared.MutationEvent, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	events := ms.mutationEvents[userID]
	results := make([]shared.MutationEvent, 0, limit)
	for i := len(events) - 1; i >= 0; i-- {
		results = append(results, events[i])
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

func (ms *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var stats Stats
	for _, rows := range ms.creatives {
		stats.Creatives += len(rows)
	}
	stats.Genomes = len(ms.genomes)
	for _, entries := range ms.regrets {
		stats.RegretEntries += len(entries)
	}
	for _, events := range ms.mutationEvents {
		stats.MutationEvents += len(events)
	}
	return stats, nil
}

func cloneGenome(g shared.Genome) shared.Genome {
	out := g
	if g.StyleEmbedding != nil {
		out.StyleEmbedding = append([]float64(nil), g.StyleEmbedding...)
	}
	if g.OutcomeEmbedding != nil {
		out.OutcomeEmbedding = append([]float64(nil), g.OutcomeEmbedding...)
	}
	out.PlatformSuccess = make(map[shared.Platform]shared.PlatformStats, len(g.PlatformSuccess))
	for k, v := range g.PlatformSuccess {
		out.PlatformSuccess[k] = v
	}
	out.StyleClusters = make(map[string]shared.StyleClusterStats, len(g.StyleClusters))
	for k, v := range g.StyleClusters {
		out.StyleClusters[k] = v
	}
	if g.MutationHistory != nil {
		out.MutationHistory = append([]shared.ShockEvent(nil), g.MutationHistory...)
	}
	return out
}
