// Package ranking implements the pure scoring and gating logic of the
// creative ranker. It operates on an immutable snapshot of the user's genome,
// regret memory, and recent-creative distribution; persistence stays in the
// application layer.
package ranking

import (
	"sort"
	"time"

	"github.com/adforge/creative-engine-go/internal/domain/stats"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// Utility score weights.
const (
	weightExpectedROI = 0.4
	weightStability   = 0.25
	weightRetention   = 0.2
	weightNovelty     = 0.15
)

// Expected-ROI shrinkage parameters.
const (
	roiPriorMean     = 1.0
	roiMaxSampleSize = 10
)

// Genome boost caps.
const (
	maxPlatformBoost   = 0.25
	platformBoostRate  = 0.3
	maxStyleBoost      = 0.10
	styleBoostRate     = 0.15
	boostMinConfidence = 0.5
	styleAffinityFloor = 0.5
)

// Near-miss promotion parameters.
const (
	nearMissMaxBonus      = 0.15
	nearMissUnitBonus     = 0.05
	nearMissMaxVolatility = 0.3
)

// Entropy guard parameters.
const (
	lowEntropyBits       = 1.5
	lowEntropyMinRecent  = 10
	convergencePenalty   = 0.85
	convergenceThreshold = 5
)

// Snapshot is the read-only state the ranker scores against.
type Snapshot struct {
	Genome        *shared.Genome
	Regrets       []shared.RegretEntry
	ClusterCounts map[string]int
	TotalRecent   int
}

// Metadata summarizes a ranking pass.
type Metadata struct {
	RankedCount       int     `json:"ranked_count"`
	GatedCount        int     `json:"gated_count"`
	ClusterEntropy    float64 `json:"cluster_entropy"`
	LowEntropy        bool    `json:"low_entropy_warning"`
	GenomeBoostActive bool    `json:"genome_boost_active"`
}

// Result is an ordered, gated ranking of a candidate batch.
type Result struct {
	Ranked   []shared.Creative `json:"ranked"`
	Gated    []shared.Creative `json:"gated"`
	Metadata Metadata          `json:"metadata"`
}

// Rank gates and scores a batch of candidate creatives. Gated creatives keep
// their original order; ranked creatives are total-ordered by utility
// descending with 1-based rank positions.
func Rank(batch []shared.Creative, snap Snapshot, now time.Time) Result {
	entropy := stats.Entropy(snap.ClusterCounts)
	lowEntropy := entropy < lowEntropyBits && snap.TotalRecent > lowEntropyMinRecent
	boostActive := snap.Genome != nil && snap.Genome.Confidence > boostMinConfidence

	ranked := make([]shared.Creative, 0, len(batch))
	gated := make([]shared.Creative, 0)

	for _, c := range batch {
		c := shared.CloneCreative(c)
		if reason := gateReason(c, len(batch), snap, now); reason != "" {
			c.Gated = true
			c.GateReason = reason
			gated = append(gated, c)
			continue
		}

		utility := baseUtility(c, snap)
		if boostActive {
			utility *= genomeBoost(c, snap.Genome)
		}
		utility += nearMissBonus(c, snap.Regrets, now)
		if lowEntropy && snap.ClusterCounts[c.StyleCluster] > convergenceThreshold {
			utility *= convergencePenalty
		}

		c.UtilityScore = utility
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UtilityScore > ranked[j].UtilityScore
	})
	for i := range ranked {
		ranked[i].RankPosition = i + 1
	}

	return Result{
		Ranked: ranked,
		Gated:  gated,
		Metadata: Metadata{
			RankedCount:       len(ranked),
			GatedCount:        len(gated),
			ClusterEntropy:    entropy,
			LowEntropy:        lowEntropy,
			GenomeBoostActive: boostActive,
		},
	}
}

// baseUtility computes the weighted utility of an ungated creative.
// Absent metrics fall back to documented neutral defaults.
func baseUtility(c shared.Creative, snap Snapshot) float64 {
	expectedROI := stats.ShrinkTowardPrior(
		c.Metrics.ROASOr(roiPriorMean),
		roiPriorMean,
		stats.SampleSizeFromSpend(c.Metrics.SpendOr(0), roiMaxSampleSize),
	)

	stability := 0.5
	switch {
	case c.Metrics.StabilityScore != nil:
		stability = *c.Metrics.StabilityScore
	case len(c.Metrics.DecayCurve) > 0:
		stability = stats.Clamp(1-stats.Variance(c.Metrics.DecayCurve), 0, 1)
	}

	retention := 0.5
	switch {
	case c.Metrics.EngagementDecay != nil:
		retention = 1 - *c.Metrics.EngagementDecay
	case c.Metrics.CTR != nil:
		retention = stats.Clamp(*c.Metrics.CTR*10, 0, 1)
	}

	novelty := 1.0
	if snap.TotalRecent > 0 {
		novelty = 1 - float64(snap.ClusterCounts[c.StyleCluster])/float64(snap.TotalRecent)
	}

	return weightExpectedROI*expectedROI +
		weightStability*stability +
		weightRetention*retention +
		weightNovelty*novelty
}

// genomeBoost returns the multiplier earned from learned platform and style
// affinity. The platform factor caps at 1.25x and the style factor at 1.10x.
func genomeBoost(c shared.Creative, g *shared.Genome) float64 {
	boost := 1.0

	if ps, ok := g.PlatformSuccess[c.Platform]; ok && ps.Total >= 1 {
		boost *= 1 + stats.Clamp(ps.SmoothedRate*platformBoostRate, 0, maxPlatformBoost)
	}

	if cs, ok := g.StyleClusters[c.StyleCluster]; ok && cs.SmoothedRate > styleAffinityFloor {
		boost *= 1 + stats.Clamp(cs.SmoothedRate*styleBoostRate, 0, maxStyleBoost)
	}

	return boost
}

// nearMissBonus promotes creatives matching tier-2 regrets that were close
// to working and not volatile. Each match adds 0.05*(1-severity), capped at
// 0.15 in total.
func nearMissBonus(c shared.Creative, regrets []shared.RegretEntry, now time.Time) float64 {
	bonus := 0.0
	for _, r := range regrets {
		if r.Tier != shared.RegretTierNearMiss {
			continue
		}
		if r.Context.Platform != c.Platform || r.Context.StyleCluster != c.StyleCluster {
			continue
		}
		if r.VolatilityScore >= nearMissMaxVolatility {
			continue
		}
		bonus += nearMissUnitBonus * (1 - r.DecayedSeverity(now))
	}
	if bonus > nearMissMaxBonus {
		bonus = nearMissMaxBonus
	}
	return bonus
}
