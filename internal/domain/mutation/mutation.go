// Package mutation implements the exploit, explore, and regret-avoidance
// strategies that derive new creative variants from a ranked batch. All
// selection is deterministic: identical inputs always yield identical
// variants.
package mutation

import (
	"time"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// Generation bounds.
const (
	// TopBases is how many top-ranked non-gated creatives are eligible as
	// mutation bases.
	TopBases = 4
	// MaxPerBase caps variants derived from a single base creative.
	MaxPerBase = 3
	// MaxPerCall caps variants across one whole call.
	MaxPerCall = 12
)

// Context is the read-only state mutation strategies consult.
type Context struct {
	Genome            *shared.Genome
	Regrets           []shared.RegretEntry
	NormalizedEntropy float64
	Goal              shared.OptimizationGoal
	Now               time.Time
}

// Candidate pairs a derived creative with its audit event. The creative
// keeps the parent's id in MutationParentID; the mutation key is the
// stable identity of the variant.
type Candidate struct {
	Creative shared.Creative
	Event    shared.MutationEvent
}

// Summary reports per-strategy counts and gating inputs for one call.
type Summary struct {
	ExploitCount         int     `json:"exploit_count"`
	ExploreCount         int     `json:"explore_count"`
	RegretAvoidanceCount int     `json:"regret_avoidance_count"`
	NormalizedEntropy    float64 `json:"normalized_entropy"`
	BasesConsidered      int     `json:"bases_considered"`
}

// Generate derives mutated candidates from a ranked batch. Only the top
// TopBases non-gated creatives serve as bases; each contributes at most
// MaxPerBase variants and the call is capped at MaxPerCall after
// deduplication by mutation key.
func Generate(ranked []shared.Creative, ctx Context) ([]Candidate, Summary) {
	if ctx.Goal == "" {
		ctx.Goal = shared.GoalBalanced
	}

	bases := make([]shared.Creative, 0, TopBases)
	for _, c := range ranked {
		if c.Gated {
			continue
		}
		bases = append(bases, c)
		if len(bases) == TopBases {
			break
		}
	}

	summary := Summary{
		NormalizedEntropy: ctx.NormalizedEntropy,
		BasesConsidered:   len(bases),
	}

	seen := make(map[string]bool)
	accepted := make([]Candidate, 0, MaxPerCall)

	for _, base := range bases {
		perBase := 0
		for _, cand := range candidatesForBase(base, ctx) {
			if perBase >= MaxPerBase || len(accepted) >= MaxPerCall {
				break
			}
			if seen[cand.Event.MutationKey] {
				continue
			}
			seen[cand.Event.MutationKey] = true
			accepted = append(accepted, cand)
			perBase++

			switch cand.Event.Source {
			case shared.SourceExploit:
				summary.ExploitCount++
			case shared.SourceExplore:
				summary.ExploreCount++
			case shared.SourceRegretAvoidance:
				summary.RegretAvoidanceCount++
			}
		}
		if len(accepted) >= MaxPerCall {
			break
		}
	}

	return accepted, summary
}

// candidatesForBase runs the three strategies against one base creative in
// fixed order so generation stays deterministic.
func candidatesForBase(base shared.Creative, ctx Context) []Candidate {
	var out []Candidate
	out = append(out, exploit(base, ctx)...)
	out = append(out, explore(base, ctx)...)
	out = append(out, avoidRegret(base, ctx)...)
	return out
}

// derive builds the mutated creative for a candidate: a deep copy of the
// parent carrying the parent id and the variant's mutation key, with the
// ranker-derived fields reset.
func derive(base shared.Creative, key string, apply func(*shared.Creative)) shared.Creative {
	c := shared.CloneCreative(base)
	c.MutationParentID = base.ID
	c.MutationKey = key
	c.UtilityScore = 0
	c.RankPosition = 0
	c.Gated = false
	c.GateReason = ""
	apply(&c)
	return c
}
