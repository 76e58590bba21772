// Package learner orchestrates genome updates from outcome reports. It is
// the only writer of genome rows and the only producer of regret entries.
package learner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adforge/creative-engine-go/internal/domain/genome"
	"github.com/adforge/creative-engine-go/internal/infrastructure/events"
	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// shockWindow is the number of most-recent creatives fed into shock decay.
const shockWindow = 10

// Request is one learning call carrying outcome reports for a user.
type Request struct {
	UserID   string           `json:"user_id"`
	Outcomes []shared.Outcome `json:"outcomes"`
}

// Response returns the persisted genome and the per-outcome audit trail.
type Response struct {
	Genome            shared.Genome          `json:"genome"`
	UpdateLog         []genome.OutcomeResult `json:"update_log"`
	ProcessedOutcomes int                    `json:"processed_outcomes"`
	Shock             *shared.ShockEvent     `json:"shock,omitempty"`
}

// Service folds outcome reports into the per-user genome.
type Service struct {
	store  store.Store
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time

	// Genome persistence is last-write-wins. Within one engine instance a
	// per-user lock serializes Learn calls so they cannot interleave;
	// separate instances sharing a store can still race.
	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewService creates a learner service.
func NewService(st store.Store, bus *events.Bus, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		bus:    bus,
		logger: logger,
		now:    time.Now,
		users:  make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the service clock. Used by tests to pin time decay.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.users[userID] = lock
	}
	return lock
}

// Learn applies the request's outcomes to the user's genome and persists the
// result in a single read-modify-write. The genome is lazily created on the
// user's first call.
func (s *Service) Learn(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == "" {
		return nil, shared.NewValidationError("user_id is required", nil)
	}
	if len(req.Outcomes) == 0 {
		return nil, shared.NewValidationError("outcomes batch is empty", nil)
	}
	for i, o := range req.Outcomes {
		if o.CreativeID == "" {
			return nil, shared.NewValidationError("outcome creative_id is required", map[string]interface{}{"index": i})
		}
		if !shared.IsValidPlatform(o.Platform) {
			return nil, shared.NewValidationError("unknown platform", map[string]interface{}{
				"index": i, "platform": string(o.Platform),
			})
		}
	}

	lock := s.userLock(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	nowMillis := s.now().UnixMilli()

	g, err := s.store.GetGenome(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		g = genome.New(req.UserID, nowMillis)
	}

	updateLog := make([]genome.OutcomeResult, 0, len(req.Outcomes))
	for _, outcome := range req.Outcomes {
		result := genome.ApplyOutcome(g, outcome)
		updateLog = append(updateLog, result)

		if result.RegretTier != 0 {
			if err := s.recordRegret(ctx, req.UserID, outcome, result, nowMillis); err != nil {
				return nil, err
			}
		}

		if err := s.updateCreativeMetrics(ctx, req.UserID, outcome); err != nil {
			return nil, err
		}
	}

	recent, err := s.store.RecentCreatives(ctx, req.UserID, shockWindow)
	if err != nil {
		return nil, err
	}
	shock, shocked := genome.ShockDecay(g, recent, nowMillis)

	genome.RefreshEntropy(g)
	g.UpdatedAt = nowMillis

	if err := s.store.PutGenome(ctx, *g); err != nil {
		return nil, err
	}

	s.logger.Info("genome updated",
		"user_id", req.UserID,
		"outcomes", len(req.Outcomes),
		"confidence", g.Confidence,
		"entropy_state", string(g.LastEntropyState),
		"shocked", shocked)

	if s.bus != nil {
		s.bus.EmitGenomeUpdated(req.UserID, g.Confidence, len(req.Outcomes))
		if shocked {
			s.bus.EmitGenomeShock(req.UserID, shock)
		}
	}

	resp := &Response{Genome: *g, UpdateLog: updateLog, ProcessedOutcomes: len(updateLog)}
	if shocked {
		resp.Shock = &shock
	}
	return resp, nil
}

// recordRegret appends one immutable regret entry for a non-ideal outcome.
func (s *Service) recordRegret(ctx context.Context, userID string, outcome shared.Outcome, result genome.OutcomeResult, nowMillis int64) error {
	entry := shared.RegretEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		CreativeID: outcome.CreativeID,
		Tier:       result.RegretTier,
		Context: shared.RegretContext{
			Platform:     outcome.Platform,
			StyleCluster: outcome.StyleCluster,
			ROAS:         outcome.Metrics.ROASOr(0),
			Spend:        outcome.Metrics.SpendOr(0),
		},
		VolatilityScore: 1 - outcome.Metrics.StabilityOr(0),
		Severity:        result.RegretSeverity,
		CreatedAt:       nowMillis,
	}
	return s.store.InsertRegret(ctx, entry)
}

// updateCreativeMetrics refreshes the stored creative's metrics from the
// outcome. Unknown creatives are recorded fresh so the rolling shock window
// still sees their performance.
func (s *Service) updateCreativeMetrics(ctx context.Context, userID string, outcome shared.Outcome) error {
	c, err := s.store.GetCreative(ctx, userID, outcome.CreativeID)
	if err != nil {
		return err
	}
	if c == nil {
		c = &shared.Creative{
			ID:           outcome.CreativeID,
			UserID:       userID,
			Platform:     outcome.Platform,
			StyleCluster: outcome.StyleCluster,
		}
	}
	c.Metrics = shared.CloneMetrics(outcome.Metrics)
	return s.store.UpsertCreative(ctx, *c)
}
