// Package ranker orchestrates creative ranking: it assembles the genome and
// regret-memory snapshot, runs the gating and scoring pass, and persists the
// resulting order when a campaign id is supplied.
package ranker

import (
	"context"
	"log/slog"
	"time"

	"github.com/adforge/creative-engine-go/internal/domain/ranking"
	"github.com/adforge/creative-engine-go/internal/infrastructure/events"
	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// Snapshot window sizes.
const (
	regretWindow = 100
	recentWindow = 50
)

// Request is one ranking call for a user's candidate batch.
type Request struct {
	UserID     string            `json:"user_id"`
	Creatives  []shared.Creative `json:"creatives"`
	CampaignID string            `json:"campaign_id,omitempty"`
}

// Response carries the ordered batch back to the caller.
type Response struct {
	Ranked   []shared.Creative `json:"ranked"`
	Gated    []shared.Creative `json:"gated"`
	Metadata ranking.Metadata  `json:"metadata"`
}

// Service ranks candidate batches against the user's learned state.
type Service struct {
	store  store.Store
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a ranker service. The bus may be nil when no event
// consumers exist.
func NewService(st store.Store, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Used by tests to pin time decay.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Rank gates and orders the request batch. Missing metrics never reject a
// creative; they fall back to neutral defaults during scoring.
func (s *Service) Rank(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == "" {
		return nil, shared.NewValidationError("user_id is required", nil)
	}
	if len(req.Creatives) == 0 {
		return nil, shared.NewValidationError("creatives batch is empty", nil)
	}
	for i, c := range req.Creatives {
		if c.Platform == "" {
			return nil, shared.NewValidationError("creative platform is required", map[string]interface{}{
				"index": i, "creative_id": c.ID,
			})
		}
		if !shared.IsValidPlatform(c.Platform) {
			return nil, shared.NewValidationError("unknown platform", map[string]interface{}{
				"index": i, "platform": string(c.Platform),
			})
		}
	}

	snap, err := s.loadSnapshot(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	result := ranking.Rank(req.Creatives, snap, s.now())

	if req.CampaignID != "" {
		if err := s.persistRanked(ctx, req, result.Ranked); err != nil {
			return nil, err
		}
	}

	s.logger.Info("rank completed",
		"user_id", req.UserID,
		"batch", len(req.Creatives),
		"ranked", result.Metadata.RankedCount,
		"gated", result.Metadata.GatedCount,
		"cluster_entropy", result.Metadata.ClusterEntropy,
		"low_entropy", result.Metadata.LowEntropy,
		"genome_boost", result.Metadata.GenomeBoostActive)

	if s.bus != nil {
		s.bus.EmitRankCompleted(req.UserID, result.Metadata.RankedCount, result.Metadata.GatedCount)
	}

	return &Response{
		Ranked:   result.Ranked,
		Gated:    result.Gated,
		Metadata: result.Metadata,
	}, nil
}

// loadSnapshot reads the genome, recent regrets, and the recent-creative
// cluster distribution in one pass. A missing genome is a valid state.
func (s *Service) loadSnapshot(ctx context.Context, userID string) (ranking.Snapshot, error) {
	g, err := s.store.GetGenome(ctx, userID)
	if err != nil {
		return ranking.Snapshot{}, err
	}

	regrets, err := s.store.RecentRegrets(ctx, userID, regretWindow)
	if err != nil {
		return ranking.Snapshot{}, err
	}

	recent, err := s.store.RecentCreatives(ctx, userID, recentWindow)
	if err != nil {
		return ranking.Snapshot{}, err
	}

	counts := make(map[string]int)
	for _, c := range recent {
		if c.StyleCluster != "" {
			counts[c.StyleCluster]++
		}
	}

	return ranking.Snapshot{
		Genome:        g,
		Regrets:       regrets,
		ClusterCounts: counts,
		TotalRecent:   len(recent),
	}, nil
}

// persistRanked upserts each ranked creative's current state. Writes are
// sequential; a failure surfaces immediately and earlier writes stand.
func (s *Service) persistRanked(ctx context.Context, req Request, ranked []shared.Creative) error {
	for _, c := range ranked {
		c.UserID = req.UserID
		c.CampaignID = req.CampaignID
		if err := s.store.UpsertCreative(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
