// Package creativeengine provides the public API for creative-engine-go.
//
// It wires the store, event bus, and the three engine services into one
// in-process Engine for callers that embed the engine instead of running
// the HTTP server.
//
// Example:
//
//	engine, err := creativeengine.New(creativeengine.Config{
//	    StoreBackend: creativeengine.BackendMemory,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	resp, err := engine.Rank(ctx, creativeengine.RankRequest{
//	    UserID:    "user-1",
//	    Creatives: batch,
//	})
package creativeengine

import (
	"context"
	"log/slog"

	"github.com/adforge/creative-engine-go/internal/application/learner"
	"github.com/adforge/creative-engine-go/internal/application/mutator"
	"github.com/adforge/creative-engine-go/internal/application/ranker"
	"github.com/adforge/creative-engine-go/internal/infrastructure/events"
	"github.com/adforge/creative-engine-go/internal/infrastructure/store"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// Re-export types for the public API.
type (
	Platform           = shared.Platform
	PerformanceMetrics = shared.PerformanceMetrics
	Creative           = shared.Creative
	Genome             = shared.Genome
	RegretEntry        = shared.RegretEntry
	Outcome            = shared.Outcome
	Mutation           = shared.Mutation
	MutationEvent      = shared.MutationEvent
	OptimizationGoal   = shared.OptimizationGoal
	Event              = shared.Event
	EventType          = shared.EventType

	RankRequest    = ranker.Request
	RankResponse   = ranker.Response
	LearnRequest   = learner.Request
	LearnResponse  = learner.Response
	MutateRequest  = mutator.Request
	MutateResponse = mutator.Response

	StoreStats = store.Stats
)

// Re-export constants.
const (
	PlatformMeta     = shared.PlatformMeta
	PlatformGoogle   = shared.PlatformGoogle
	PlatformTikTok   = shared.PlatformTikTok
	PlatformLinkedIn = shared.PlatformLinkedIn
	PlatformX        = shared.PlatformX

	GoalBalanced    = shared.GoalBalanced
	GoalROI         = shared.GoalROI
	GoalExploration = shared.GoalExploration

	BackendSQLite   = store.BackendSQLite
	BackendPostgres = store.BackendPostgres
	BackendMemory   = store.BackendMemory

	EventRankCompleted     = shared.EventRankCompleted
	EventGenomeUpdated     = shared.EventGenomeUpdated
	EventGenomeShock       = shared.EventGenomeShock
	EventMutationGenerated = shared.EventMutationGenerated
)

// Float64Ptr returns a pointer to v. Convenience for optional metric fields.
func Float64Ptr(v float64) *float64 { return shared.Float64Ptr(v) }

// Config configures an in-process Engine.
type Config struct {
	// StoreBackend selects sqlite, postgres, or memory. Empty means sqlite.
	StoreBackend string

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// Logger receives service logs. Nil falls back to slog.Default().
	Logger *slog.Logger
}

// Engine bundles the engine services over one store and event bus.
type Engine struct {
	store   store.Store
	bus     *events.Bus
	ranker  *ranker.Service
	learner *learner.Service
	mutator *mutator.Service
}

// New constructs and initializes an Engine.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(store.Config{
		Backend:    cfg.StoreBackend,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Init(context.Background()); err != nil {
		return nil, err
	}

	bus := events.New()
	return &Engine{
		store:   st,
		bus:     bus,
		ranker:  ranker.NewService(st, bus, logger),
		learner: learner.NewService(st, bus, logger),
		mutator: mutator.NewService(st, bus, logger),
	}, nil
}

// Rank gates and orders a candidate batch for the user.
func (e *Engine) Rank(ctx context.Context, req RankRequest) (*RankResponse, error) {
	return e.ranker.Rank(ctx, req)
}

// Learn folds outcome reports into the user's genome.
func (e *Engine) Learn(ctx context.Context, req LearnRequest) (*LearnResponse, error) {
	return e.learner.Learn(ctx, req)
}

// Mutate derives variant creatives from a ranked batch.
func (e *Engine) Mutate(ctx context.Context, req MutateRequest) (*MutateResponse, error) {
	return e.mutator.Mutate(ctx, req)
}

// Genome returns the user's persisted genome, or nil when none exists.
func (e *Engine) Genome(ctx context.Context, userID string) (*Genome, error) {
	return e.store.GetGenome(ctx, userID)
}

// Stats reports store row counts.
func (e *Engine) Stats(ctx context.Context) (StoreStats, error) {
	return e.store.Stats(ctx)
}

// Subscribe returns a channel receiving events of the given type.
func (e *Engine) Subscribe(eventType EventType) <-chan Event {
	return e.bus.Subscribe(eventType)
}

// Close shuts down the event bus and the store.
func (e *Engine) Close() error {
	e.bus.Close()
	return e.store.Close()
}
