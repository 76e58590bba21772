// Package mutator orchestrates variant generation: it assembles the genome
// and regret snapshot, runs the mutation strategies over a ranked batch, and
// persists one audit event per accepted variant.
package mutator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adforge/creative-engine-go/internal/domain/mutation"
	"github.com/adforge/creative-engine-go/internal/domain/stats"
	"github.com/adforge/creative-engine-go/internal/infrastructure/events"
	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// Snapshot window sizes.
const (
	regretWindow = 100
	recentWindow = 50
)

// Request is one mutation call over a user's ranked batch.
type Request struct {
	UserID     string                  `json:"user_id"`
	Ranked     []shared.Creative       `json:"ranked_creatives"`
	CampaignID string                  `json:"campaign_id,omitempty"`
	Goal       shared.OptimizationGoal `json:"goal,omitempty"`
}

// Provenance explains one accepted variant.
type Provenance struct {
	MutationKey   string                 `json:"mutation_key"`
	ParentID      string                 `json:"parent_id"`
	Source        shared.MutationSource  `json:"source"`
	Mutations     []shared.Mutation      `json:"mutations"`
	MutationScore float64                `json:"mutation_score"`
}

// Response carries the proposed variants, their provenance, and summary
// metadata back to the caller.
type Response struct {
	Original   []shared.Creative `json:"original_creatives"`
	Mutated    []shared.Creative `json:"mutated_creatives"`
	Provenance []Provenance      `json:"mutation_provenance"`
	Metadata   mutation.Summary  `json:"metadata"`
}

// Service generates mutated creative variants from a ranked batch.
type Service struct {
	store  store.Store
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a mutator service.
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

// Mutate derives variants for the request's batch and persists one mutation
// event per accepted variant.
func (s *Service) Mutate(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == "" {
		return nil, shared.NewValidationError("user_id is required", nil)
	}
	if len(req.Ranked) == 0 {
		return nil, shared.NewValidationError("ranked batch is empty", nil)
	}
	switch req.Goal {
	case "", shared.GoalBalanced, shared.GoalROI, shared.GoalExploration:
	default:
		return nil, shared.NewValidationError("unknown optimization goal", map[string]interface{}{
			"goal": string(req.Goal),
		})
	}

	g, err := s.store.GetGenome(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	regrets, err := s.store.RecentRegrets(ctx, req.UserID, regretWindow)
	if err != nil {
		return nil, err
	}
	normEntropy, err := s.recentNormalizedEntropy(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	candidates, summary := mutation.Generate(req.Ranked, mutation.Context{
		Genome:            g,
		Regrets:           regrets,
		NormalizedEntropy: normEntropy,
		Goal:              req.Goal,
		Now:               now,
	})

	mutated := make([]shared.Creative, 0, len(candidates))
	provenance := make([]Provenance, 0, len(candidates))
	bySource := make(map[string]int)

	for _, cand := range candidates {
		event := cand.Event
		event.ID = uuid.New().String()
		event.UserID = req.UserID
		event.CampaignID = req.CampaignID
		event.Applied = true
		event.CreatedAt = now.UnixMilli()

		if err := s.store.InsertMutationEvent(ctx, event); err != nil {
			return nil, err
		}

		c := cand.Creative
		c.UserID = req.UserID
		mutated = append(mutated, c)
		provenance = append(provenance, Provenance{
			MutationKey:   event.MutationKey,
			ParentID:      c.MutationParentID,
			Source:        event.Source,
			Mutations:     event.Mutations,
			MutationScore: event.MutationScore,
		})
		bySource[string(event.Source)]++
	}

	s.logger.Info("mutations generated",
		"user_id", req.UserID,
		"bases", summary.BasesConsidered,
		"generated", len(mutated),
		"exploit", summary.ExploitCount,
		"explore", summary.ExploreCount,
		"regret_avoidance", summary.RegretAvoidanceCount,
		"normalized_entropy", summary.NormalizedEntropy)

	if s.bus != nil {
		s.bus.EmitMutationGenerated(req.UserID, len(mutated), bySource)
	}

	return &Response{
		Original:   req.Ranked,
		Mutated:    mutated,
		Provenance: provenance,
		Metadata:   summary,
	}, nil
}

// recentNormalizedEntropy computes normalized style-cluster entropy over the
// user's most recent creatives.
func (s *Service) recentNormalizedEntropy(ctx context.Context, userID string) (float64, error) {
	recent, err := s.store.RecentCreatives(ctx, userID, recentWindow)
	if err != nil {
		return 0, err
	}
	counts := make(map[string]int)
	for _, c := range recent {
		if c.StyleCluster != "" {
			counts[c.StyleCluster]++
		}
	}
	return stats.NormalizedEntropy(counts), nil
}
