// Package genome implements the persistent per-user preference model and its
// learning rules: outcome classification, EMA embedding updates, confidence
// nudges, shock decay, and entropy-state tracking.
package genome

import (
	"github.com/adforge/creative-engine-go/internal/domain/stats"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// Learning constants.
const (
	// ProfitableROAS is the ROAS threshold for a profitable outcome.
	ProfitableROAS = 1.0
	// StableScore is the stability threshold for a stable outcome.
	StableScore = 0.5
	// ConfidenceStep is the per-outcome confidence reward for a profitable
	// and stable result.
	ConfidenceStep = 0.02
	// EmbeddingDecay is the EMA weight of a new embedding observation.
	EmbeddingDecay = 0.2
	// ROASDecay is the EMA weight of a new avg-ROAS observation.
	ROASDecay = 0.2
	// DefaultRiskAppetite seeds a fresh genome's willingness to explore.
	DefaultRiskAppetite = 0.5
)

// Entropy state thresholds over normalized entropy.
const (
	entropyHealthyFloor = 0.6
	entropyWarningFloor = 0.4
)

// New creates a fresh genome for a user with default low-confidence values.
func New(userID string, now int64) *shared.Genome {
	return &shared.Genome{
		UserID:               userID,
		Confidence:           shared.InitialGenomeConfidence,
		PlatformSuccess:      make(map[shared.Platform]shared.PlatformStats),
		StyleClusters:        make(map[string]shared.StyleClusterStats),
		BaselineRiskAppetite: DefaultRiskAppetite,
		LastEntropyState:     shared.EntropyHealthy,
		LastEntropyValue:     1,
		UpdatedAt:            now,
	}
}

// Classify recomputes profitability and stability from metrics. The
// caller-supplied flags on an outcome are advisory and never consulted.
func Classify(m shared.PerformanceMetrics) (profitable, stable bool) {
	profitable = m.ROASOr(0) >= ProfitableROAS
	stable = m.StabilityOr(0) >= StableScore
	return profitable, stable
}

// RegretTier maps a ROAS value to its regret tier.
func RegretTier(roas float64) int {
	switch {
	case roas < 0:
		return shared.RegretTierHardFailure
	case roas < 0.8:
		return shared.RegretTierNearMiss
	default:
		return shared.RegretTierUnstable
	}
}

// RegretSeverity computes the raw severity recorded for a failed outcome.
// Stable failures are penalized at half weight.
func RegretSeverity(roas float64, stable bool) float64 {
	severity := 1 - roas
	if severity < 0 {
		severity = 0
	}
	if stable {
		severity *= 0.5
	}
	return severity
}

// OutcomeResult summarizes how one outcome changed the genome.
type OutcomeResult struct {
	CreativeID      string  `json:"creative_id"`
	Profitable      bool    `json:"profitable"`
	Stable          bool    `json:"stable"`
	ConfidenceDelta float64 `json:"confidence_delta"`
	RegretTier      int     `json:"regret_tier,omitempty"`
	RegretSeverity  float64 `json:"regret_severity,omitempty"`
}

// ApplyOutcome folds one outcome report into the genome in place and reports
// what changed. When the outcome is not both profitable and stable, the
// returned result carries the regret tier and severity the caller must record.
func ApplyOutcome(g *shared.Genome, outcome shared.Outcome) OutcomeResult {
	profitable, stable := Classify(outcome.Metrics)
	roas := outcome.Metrics.ROASOr(0)

	result := OutcomeResult{
		CreativeID: outcome.CreativeID,
		Profitable: profitable,
		Stable:     stable,
	}

	if profitable && stable {
		g.StyleEmbedding = stats.EMAVector(g.StyleEmbedding, StyleEmbedding(outcome.StyleCluster), EmbeddingDecay)
		g.OutcomeEmbedding = stats.EMAVector(g.OutcomeEmbedding, OutcomeEmbedding(outcome.Metrics, profitable, stable), EmbeddingDecay)
		g.ProfitableCreatives++

		before := g.Confidence
		g.Confidence = stats.Clamp(g.Confidence+ConfidenceStep, shared.MinGenomeConfidence, shared.MaxGenomeConfidence)
		result.ConfidenceDelta = g.Confidence - before
	} else {
		result.RegretTier = RegretTier(roas)
		result.RegretSeverity = RegretSeverity(roas, stable)
	}

	ps := g.PlatformSuccess[outcome.Platform]
	ps.Total++
	if profitable {
		ps.Wins++
	}
	ps.SmoothedRate = stats.WilsonScore(ps.Wins, ps.Total)
	ps.AvgROAS = stats.EMA(ps.AvgROAS, roas, ROASDecay)
	g.PlatformSuccess[outcome.Platform] = ps

	if outcome.StyleCluster != "" {
		cs := g.StyleClusters[outcome.StyleCluster]
		cs.Count++
		if profitable {
			cs.Successes++
		}
		cs.SmoothedRate = stats.WilsonScore(cs.Successes, cs.Count)
		g.StyleClusters[outcome.StyleCluster] = cs
	}

	g.TotalCreatives++
	return result
}

// Shock decay thresholds over the rolling recent-creative window.
const (
	// ShockWindow is the number of recent creatives inspected.
	ShockWindow = 10
	// ShockMinSamples is the minimum window size required to trigger.
	ShockMinSamples = 5

	shockROASFloor      = 0.7
	shockStabilityFloor = 0.3
)

// ShockDecay applies confidence shock decay using the stored metrics of the
// user's most recent creatives. It returns the recorded event when a shock
// fired. The mutation history is trimmed to its cap.
func ShockDecay(g *shared.Genome, recent []shared.Creative, now int64) (shared.ShockEvent, bool) {
	if len(recent) < ShockMinSamples {
		return shared.ShockEvent{}, false
	}

	window := recent
	if len(window) > ShockWindow {
		window = window[:ShockWindow]
	}

	roas := make([]float64, 0, len(window))
	stability := make([]float64, 0, len(window))
	for _, c := range window {
		roas = append(roas, c.Metrics.ROASOr(0))
		stability = append(stability, c.Metrics.StabilityOr(0))
	}

	var reduction float64
	var reason string
	switch {
	case stats.Mean(roas) < shockROASFloor:
		reduction = stats.Clamp(g.Confidence*0.3, 0, 0.2)
		reason = "confidence_shock:rolling_roas_below_0.7"
	case stats.Mean(stability) < shockStabilityFloor:
		reduction = stats.Clamp(g.Confidence*0.2, 0, 0.15)
		reason = "confidence_shock:rolling_stability_below_0.3"
	default:
		return shared.ShockEvent{}, false
	}

	before := g.Confidence
	g.Confidence = stats.Clamp(g.Confidence-reduction, shared.MinGenomeConfidence, shared.MaxGenomeConfidence)

	event := shared.ShockEvent{
		Reason:    reason,
		Before:    before,
		After:     g.Confidence,
		Timestamp: now,
	}
	g.MutationHistory = append(g.MutationHistory, event)
	if len(g.MutationHistory) > shared.MutationHistoryCap {
		g.MutationHistory = g.MutationHistory[len(g.MutationHistory)-shared.MutationHistoryCap:]
	}
	return event, true
}

// RefreshEntropy recomputes the genome's intra-genome entropy from its
// style-cluster counts and updates the three-state entropy label.
func RefreshEntropy(g *shared.Genome) {
	counts := make(map[string]int, len(g.StyleClusters))
	for cluster, cs := range g.StyleClusters {
		counts[cluster] = cs.Count
	}

	g.IntraGenomeEntropy = stats.Entropy(counts)
	g.LastEntropyValue = stats.NormalizedEntropy(counts)

	switch {
	case g.LastEntropyValue >= entropyHealthyFloor:
		g.LastEntropyState = shared.EntropyHealthy
	case g.LastEntropyValue >= entropyWarningFloor:
		g.LastEntropyState = shared.EntropyWarning
	default:
		g.LastEntropyState = shared.EntropyCritical
	}
}
