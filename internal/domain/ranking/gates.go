package ranking

import (
	"time"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// Gate reasons attached to creatives excluded from scoring.
const (
	GateNegativeROI              = "negative_roi"
	GatePolicyViolation          = "policy_violation"
	GateClusterSaturationRegret  = "cluster_saturation_with_regret"
	GateMatchesHighRegretPattern = "matches_high_regret_pattern"
)

// Saturation gate thresholds.
const (
	saturationMinBatch     = 3
	saturationShare        = 0.30
	saturationTier1Regrets = 2
	highRegretSeverity     = 0.8
)

// gateReason evaluates the hard gates for one creative in order; the first
// matching gate wins. An empty reason means the creative passes.
func gateReason(c shared.Creative, batchSize int, snap Snapshot, now time.Time) string {
	if c.Metrics.ROAS != nil && *c.Metrics.ROAS < 0 {
		return GateNegativeROI
	}

	if len(c.Metrics.PolicyFlags) > 0 {
		return GatePolicyViolation
	}

	if batchSize > saturationMinBatch && snap.TotalRecent > 0 {
		share := float64(snap.ClusterCounts[c.StyleCluster]) / float64(snap.TotalRecent)
		if share > saturationShare && snap.tier1RegretCount(c.StyleCluster) > saturationTier1Regrets {
			return GateClusterSaturationRegret
		}
	}

	for _, r := range snap.Regrets {
		if r.Tier != shared.RegretTierHardFailure {
			continue
		}
		if r.Context.Platform == c.Platform && r.Context.StyleCluster == c.StyleCluster &&
			r.DecayedSeverity(now) > highRegretSeverity {
			return GateMatchesHighRegretPattern
		}
	}

	return ""
}

func (s Snapshot) tier1RegretCount(cluster string) int {
	count := 0
	for _, r := range s.Regrets {
		if r.Tier == shared.RegretTierHardFailure && r.Context.StyleCluster == cluster {
			count++
		}
	}
	return count
}
