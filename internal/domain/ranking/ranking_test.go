package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/adforge/creative-engine-go/internal/shared"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func healthyCreative(id, cluster string) shared.Creative {
	return shared.Creative{
		ID:           id,
		UserID:       "user-1",
		Platform:     shared.PlatformMeta,
		StyleCluster: cluster,
		Metrics: shared.PerformanceMetrics{
			ROAS:           shared.Float64Ptr(2.0),
			Spend:          shared.Float64Ptr(500),
			StabilityScore: shared.Float64Ptr(0.8),
			CTR:            shared.Float64Ptr(0.05),
		},
	}
}

func freshRegret(tier int, platform shared.Platform, cluster string, severity, volatility float64) shared.RegretEntry {
	return shared.RegretEntry{
		ID:              "r-" + cluster,
		Tier:            tier,
		Context:         shared.RegretContext{Platform: platform, StyleCluster: cluster},
		Severity:        severity,
		VolatilityScore: volatility,
		CreatedAt:       testNow.UnixMilli(),
	}
}

func TestNegativeROIAlwaysGated(t *testing.T) {
	// Otherwise-excellent metrics must not save a money-losing creative.
	c := healthyCreative("c-1", "bold")
	c.Metrics.ROAS = shared.Float64Ptr(-0.1)

	result := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	if len(result.Gated) != 1 || len(result.Ranked) != 0 {
		t.Fatalf("expected 1 gated / 0 ranked, got %d / %d", len(result.Gated), len(result.Ranked))
	}
	if result.Gated[0].GateReason != GateNegativeROI {
		t.Errorf("gate reason = %q, expected %q", result.Gated[0].GateReason, GateNegativeROI)
	}
	if !result.Gated[0].Gated {
		t.Error("gated creative must be annotated gated")
	}
}

func TestPolicyViolationGatedDespiteStrongROAS(t *testing.T) {
	c := healthyCreative("c-1", "bold")
	c.Metrics.ROAS = shared.Float64Ptr(5.0)
	c.Metrics.PolicyFlags = []string{"restricted_content"}

	result := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	if len(result.Gated) != 1 {
		t.Fatal("expected policy-flagged creative to be gated")
	}
	if result.Gated[0].GateReason != GatePolicyViolation {
		t.Errorf("gate reason = %q, expected %q", result.Gated[0].GateReason, GatePolicyViolation)
	}
}

func TestNegativeROIWinsOverPolicyViolation(t *testing.T) {
	c := healthyCreative("c-1", "bold")
	c.Metrics.ROAS = shared.Float64Ptr(-1)
	c.Metrics.PolicyFlags = []string{"restricted_content"}

	result := Rank([]shared.Creative{c}, Snapshot{}, testNow)
	if result.Gated[0].GateReason != GateNegativeROI {
		t.Errorf("first matching gate must win, got %q", result.Gated[0].GateReason)
	}
}

func TestClusterSaturationWithRegretGate(t *testing.T) {
	snap := Snapshot{
		ClusterCounts: map[string]int{"bold": 20, "minimal": 30},
		TotalRecent:   50,
		Regrets: []shared.RegretEntry{
			freshRegret(1, shared.PlatformMeta, "bold", 0.5, 0.5),
			freshRegret(1, shared.PlatformGoogle, "bold", 0.4, 0.5),
			freshRegret(1, shared.PlatformTikTok, "bold", 0.3, 0.5),
		},
	}

	batch := []shared.Creative{
		healthyCreative("c-1", "bold"),
		healthyCreative("c-2", "minimal"),
		healthyCreative("c-3", "minimal"),
		healthyCreative("c-4", "minimal"),
	}

	result := Rank(batch, snap, testNow)

	var gatedBold bool
	for _, g := range result.Gated {
		if g.ID == "c-1" {
			gatedBold = true
			if g.GateReason != GateClusterSaturationRegret {
				t.Errorf("gate reason = %q", g.GateReason)
			}
		}
	}
	if !gatedBold {
		t.Fatal("saturated regretful cluster should be gated")
	}
}

func TestSaturationGateNeedsBatchPopulation(t *testing.T) {
	snap := Snapshot{
		ClusterCounts: map[string]int{"bold": 20},
		TotalRecent:   50,
		Regrets: []shared.RegretEntry{
			freshRegret(1, shared.PlatformMeta, "bold", 0.5, 0.5),
			freshRegret(1, shared.PlatformGoogle, "bold", 0.4, 0.5),
			freshRegret(1, shared.PlatformTikTok, "bold", 0.3, 0.5),
		},
	}

	// Batch of 3 is below the population threshold.
	batch := []shared.Creative{
		healthyCreative("c-1", "bold"),
		healthyCreative("c-2", "bold"),
		healthyCreative("c-3", "bold"),
	}

	result := Rank(batch, snap, testNow)
	if len(result.Gated) != 0 {
		t.Fatalf("small batch must not trigger saturation gate, gated %d", len(result.Gated))
	}
}

func TestHighRegretPatternGate(t *testing.T) {
	snap := Snapshot{
		Regrets: []shared.RegretEntry{
			freshRegret(1, shared.PlatformMeta, "bold", 0.95, 0.8),
		},
	}

	c := healthyCreative("c-1", "bold")
	result := Rank([]shared.Creative{c}, snap, testNow)

	if len(result.Gated) != 1 || result.Gated[0].GateReason != GateMatchesHighRegretPattern {
		t.Fatalf("expected high-regret gate, got %+v", result.Gated)
	}

	// Different platform: not a pattern match.
	c2 := healthyCreative("c-2", "bold")
	c2.Platform = shared.PlatformGoogle
	result = Rank([]shared.Creative{c2}, snap, testNow)
	if len(result.Gated) != 0 {
		t.Error("regret pattern requires platform and cluster match")
	}
}

func TestHighRegretPatternRespectsDecay(t *testing.T) {
	// A 0.95-severity regret from 90 days ago has decayed well under 0.8.
	old := freshRegret(1, shared.PlatformMeta, "bold", 0.95, 0.8)
	old.CreatedAt = testNow.Add(-90 * 24 * time.Hour).UnixMilli()

	result := Rank([]shared.Creative{healthyCreative("c-1", "bold")},
		Snapshot{Regrets: []shared.RegretEntry{old}}, testNow)

	if len(result.Gated) != 0 {
		t.Fatal("decayed regret should no longer gate")
	}
}

func TestUtilityNeutralDefaults(t *testing.T) {
	// A creative with no metrics at all is scored, not rejected.
	c := shared.Creative{ID: "c-1", Platform: shared.PlatformMeta, StyleCluster: "bold"}

	result := Rank([]shared.Creative{c}, Snapshot{}, testNow)
	if len(result.Ranked) != 1 {
		t.Fatal("metricless creative must still rank")
	}

	// ROI prior 1.0, stability 0.5, retention 0.5, novelty 1.0.
	want := 0.4*1.0 + 0.25*0.5 + 0.2*0.5 + 0.15*1.0
	if math.Abs(result.Ranked[0].UtilityScore-want) > 1e-9 {
		t.Errorf("utility = %v, expected %v", result.Ranked[0].UtilityScore, want)
	}
}

func TestGenomeBoostBounds(t *testing.T) {
	g := &shared.Genome{
		Confidence: 0.9,
		PlatformSuccess: map[shared.Platform]shared.PlatformStats{
			shared.PlatformMeta: {Wins: 100, Total: 100, SmoothedRate: 0.99},
		},
		StyleClusters: map[string]shared.StyleClusterStats{
			"bold": {Count: 100, Successes: 99, SmoothedRate: 0.95},
		},
	}

	c := healthyCreative("c-1", "bold")
	withBoost := Rank([]shared.Creative{c}, Snapshot{Genome: g}, testNow)
	without := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	ratio := withBoost.Ranked[0].UtilityScore / without.Ranked[0].UtilityScore
	if ratio > 1.375+1e-9 {
		t.Fatalf("compounded boost ratio %v exceeds 1.375", ratio)
	}
	if ratio <= 1 {
		t.Fatalf("boost should raise utility, ratio %v", ratio)
	}
}

func TestGenomeBoostRequiresConfidence(t *testing.T) {
	g := &shared.Genome{
		Confidence: 0.5, // not strictly above the threshold
		PlatformSuccess: map[shared.Platform]shared.PlatformStats{
			shared.PlatformMeta: {Wins: 10, Total: 10, SmoothedRate: 0.7},
		},
	}

	c := healthyCreative("c-1", "bold")
	boosted := Rank([]shared.Creative{c}, Snapshot{Genome: g}, testNow)
	plain := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	if boosted.Ranked[0].UtilityScore != plain.Ranked[0].UtilityScore {
		t.Error("boost must stay off at confidence <= 0.5")
	}
	if boosted.Metadata.GenomeBoostActive {
		t.Error("metadata should report boost inactive")
	}
}

func TestNearMissPromotion(t *testing.T) {
	snap := Snapshot{
		Regrets: []shared.RegretEntry{
			freshRegret(2, shared.PlatformMeta, "bold", 0.4, 0.2),
		},
	}

	c := healthyCreative("c-1", "bold")
	promoted := Rank([]shared.Creative{c}, snap, testNow)
	plain := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	delta := promoted.Ranked[0].UtilityScore - plain.Ranked[0].UtilityScore
	want := 0.05 * (1 - 0.4)
	if math.Abs(delta-want) > 1e-9 {
		t.Errorf("near-miss bonus = %v, expected %v", delta, want)
	}
}

func TestNearMissBonusCapped(t *testing.T) {
	regrets := make([]shared.RegretEntry, 0, 10)
	for i := 0; i < 10; i++ {
		regrets = append(regrets, freshRegret(2, shared.PlatformMeta, "bold", 0, 0.1))
	}

	c := healthyCreative("c-1", "bold")
	promoted := Rank([]shared.Creative{c}, Snapshot{Regrets: regrets}, testNow)
	plain := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	delta := promoted.Ranked[0].UtilityScore - plain.Ranked[0].UtilityScore
	if delta > 0.15+1e-9 {
		t.Fatalf("near-miss bonus %v exceeds 0.15 cap", delta)
	}
}

func TestNearMissSkipsVolatileRegrets(t *testing.T) {
	snap := Snapshot{
		Regrets: []shared.RegretEntry{
			freshRegret(2, shared.PlatformMeta, "bold", 0.2, 0.9),
		},
	}

	c := healthyCreative("c-1", "bold")
	promoted := Rank([]shared.Creative{c}, snap, testNow)
	plain := Rank([]shared.Creative{c}, Snapshot{}, testNow)

	if promoted.Ranked[0].UtilityScore != plain.Ranked[0].UtilityScore {
		t.Error("volatile near-misses must not contribute a bonus")
	}
}

func TestEntropyConvergencePenalty(t *testing.T) {
	// 40 of the last 50 creatives share one cluster: low entropy.
	snap := Snapshot{
		ClusterCounts: map[string]int{"bold": 40, "minimal": 5, "ugc": 5},
		TotalRecent:   50,
	}

	converged := healthyCreative("c-1", "bold")
	fresh := healthyCreative("c-2", "unseen")

	result := Rank([]shared.Creative{converged, fresh}, snap, testNow)
	if !result.Metadata.LowEntropy {
		t.Fatal("expected low-entropy warning")
	}

	var boldScore, freshScore float64
	for _, r := range result.Ranked {
		switch r.ID {
		case "c-1":
			boldScore = r.UtilityScore
		case "c-2":
			freshScore = r.UtilityScore
		}
	}

	// Reconstruct the unpenalized bold score: same base inputs but with the
	// cluster treated as fresh, adjusted for the novelty share difference.
	base := baseUtility(converged, snap)
	if math.Abs(boldScore-base*0.85) > 1e-9 {
		t.Errorf("converged cluster score = %v, expected %v", boldScore, base*0.85)
	}
	if freshScore <= boldScore {
		t.Error("unrepresented cluster should outrank the converged one")
	}
}

func TestRankingOrderAndPositions(t *testing.T) {
	strong := healthyCreative("strong", "a")
	strong.Metrics.ROAS = shared.Float64Ptr(4.0)
	weak := healthyCreative("weak", "b")
	weak.Metrics.ROAS = shared.Float64Ptr(0.9)
	mid := healthyCreative("mid", "c")

	result := Rank([]shared.Creative{weak, strong, mid}, Snapshot{}, testNow)

	if len(result.Ranked) != 3 {
		t.Fatalf("ranked %d, expected 3", len(result.Ranked))
	}
	for i := 1; i < len(result.Ranked); i++ {
		if result.Ranked[i].UtilityScore > result.Ranked[i-1].UtilityScore {
			t.Fatal("ranked output must be descending by utility")
		}
	}
	for i, r := range result.Ranked {
		if r.RankPosition != i+1 {
			t.Errorf("rank position = %d at index %d", r.RankPosition, i)
		}
	}
	if result.Ranked[0].ID != "strong" {
		t.Errorf("top creative = %q, expected strong", result.Ranked[0].ID)
	}
}

func TestGatedPreserveOriginalOrder(t *testing.T) {
	a := healthyCreative("a", "x")
	a.Metrics.ROAS = shared.Float64Ptr(-1)
	b := healthyCreative("b", "y")
	b.Metrics.PolicyFlags = []string{"flag"}
	c := healthyCreative("c", "z")
	c.Metrics.ROAS = shared.Float64Ptr(-2)

	result := Rank([]shared.Creative{a, b, c}, Snapshot{}, testNow)
	if len(result.Gated) != 3 {
		t.Fatalf("expected all gated, got %d", len(result.Gated))
	}
	for i, want := range []string{"a", "b", "c"} {
		if result.Gated[i].ID != want {
			t.Errorf("gated[%d] = %q, expected %q", i, result.Gated[i].ID, want)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	c := healthyCreative("c-1", "bold")
	batch := []shared.Creative{c}

	Rank(batch, Snapshot{}, testNow)

	if batch[0].UtilityScore != 0 || batch[0].RankPosition != 0 || batch[0].Gated {
		t.Error("input batch must not be mutated")
	}
}
