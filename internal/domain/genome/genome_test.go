package genome

import (
	"math"
	"testing"

	"github.com/adforge/creative-engine-go/internal/shared"
)

func metricsWith(roas, stability float64) shared.PerformanceMetrics {
	return shared.PerformanceMetrics{
		ROAS:           shared.Float64Ptr(roas),
		StabilityScore: shared.Float64Ptr(stability),
	}
}

func TestNewGenomeDefaults(t *testing.T) {
	g := New("user-1", 1000)

	if g.Confidence != shared.InitialGenomeConfidence {
		t.Errorf("initial confidence = %v, expected %v", g.Confidence, shared.InitialGenomeConfidence)
	}
	if g.BaselineRiskAppetite != DefaultRiskAppetite {
		t.Errorf("risk appetite = %v, expected %v", g.BaselineRiskAppetite, DefaultRiskAppetite)
	}
	if g.LastEntropyState != shared.EntropyHealthy {
		t.Errorf("fresh genome entropy state = %v, expected healthy", g.LastEntropyState)
	}
	if g.PlatformSuccess == nil || g.StyleClusters == nil {
		t.Error("stat maps must be initialized")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name               string
		metrics            shared.PerformanceMetrics
		profitable, stable bool
	}{
		{name: "profitable and stable", metrics: metricsWith(3.5, 0.9), profitable: true, stable: true},
		{name: "exactly at thresholds", metrics: metricsWith(1.0, 0.5), profitable: true, stable: true},
		{name: "profitable unstable", metrics: metricsWith(1.4, 0.2), profitable: true, stable: false},
		{name: "unprofitable stable", metrics: metricsWith(0.5, 0.8), profitable: false, stable: true},
		{name: "missing metrics default down", metrics: shared.PerformanceMetrics{}, profitable: false, stable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profitable, stable := Classify(tt.metrics)
			if profitable != tt.profitable || stable != tt.stable {
				t.Fatalf("Classify = (%v, %v), expected (%v, %v)", profitable, stable, tt.profitable, tt.stable)
			}
		})
	}
}

func TestClassifyIgnoresCallerFlags(t *testing.T) {
	// Caller claims profitable+stable, metrics say otherwise.
	outcome := shared.Outcome{
		CreativeID:   "c-1",
		Platform:     shared.PlatformMeta,
		StyleCluster: "bold",
		Metrics:      metricsWith(0.2, 0.1),
		IsProfitable: shared.BoolPtr(true),
		IsStable:     shared.BoolPtr(true),
	}

	g := New("user-1", 0)
	result := ApplyOutcome(g, outcome)

	if result.Profitable || result.Stable {
		t.Error("classification must come from metrics, not caller flags")
	}
	if result.RegretTier != shared.RegretTierNearMiss {
		t.Errorf("regret tier = %d, expected near-miss", result.RegretTier)
	}
}

func TestRegretTier(t *testing.T) {
	tests := []struct {
		roas float64
		tier int
	}{
		{roas: -0.5, tier: shared.RegretTierHardFailure},
		{roas: 0, tier: shared.RegretTierNearMiss},
		{roas: 0.79, tier: shared.RegretTierNearMiss},
		{roas: 0.8, tier: shared.RegretTierUnstable},
		{roas: 2.5, tier: shared.RegretTierUnstable},
	}
	for _, tt := range tests {
		if got := RegretTier(tt.roas); got != tt.tier {
			t.Errorf("RegretTier(%v) = %d, expected %d", tt.roas, got, tt.tier)
		}
	}
}

func TestRegretSeverity(t *testing.T) {
	if got := RegretSeverity(0.5, false); got != 0.5 {
		t.Errorf("unstable severity = %v, expected 0.5", got)
	}
	if got := RegretSeverity(0.5, true); got != 0.25 {
		t.Errorf("stable severity halved = %v, expected 0.25", got)
	}
	if got := RegretSeverity(1.5, false); got != 0 {
		t.Errorf("profitable ROAS severity = %v, expected clamp to 0", got)
	}
	if got := RegretSeverity(-1, false); got != 2 {
		t.Errorf("negative ROAS severity = %v, expected 2", got)
	}
}

func TestApplyOutcomeProfitableStable(t *testing.T) {
	g := New("user-1", 0)
	outcome := shared.Outcome{
		CreativeID:   "c-1",
		Platform:     shared.PlatformMeta,
		StyleCluster: "bold",
		Metrics:      metricsWith(3.5, 0.9),
	}

	result := ApplyOutcome(g, outcome)

	if !result.Profitable || !result.Stable {
		t.Fatal("expected profitable and stable classification")
	}
	if result.RegretTier != 0 {
		t.Errorf("profitable+stable outcome should not carry a regret tier, got %d", result.RegretTier)
	}
	if math.Abs(g.Confidence-0.12) > 1e-9 {
		t.Errorf("confidence = %v, expected 0.12", g.Confidence)
	}
	if g.ProfitableCreatives != 1 || g.TotalCreatives != 1 {
		t.Errorf("counters = (%d, %d), expected (1, 1)", g.ProfitableCreatives, g.TotalCreatives)
	}
	if len(g.StyleEmbedding) != StyleEmbeddingDims {
		t.Errorf("style embedding length = %d, expected %d", len(g.StyleEmbedding), StyleEmbeddingDims)
	}
	if len(g.OutcomeEmbedding) != 6 {
		t.Errorf("outcome embedding length = %d, expected 6", len(g.OutcomeEmbedding))
	}

	ps := g.PlatformSuccess[shared.PlatformMeta]
	if ps.Wins != 1 || ps.Total != 1 {
		t.Errorf("platform stats = %+v", ps)
	}
	if ps.SmoothedRate <= 0 || ps.SmoothedRate >= 1 {
		t.Errorf("smoothed rate = %v, expected Wilson lower bound in (0, 1)", ps.SmoothedRate)
	}
	if math.Abs(ps.AvgROAS-0.7) > 1e-9 { // EMA from 0 with decay 0.2: 0.2*3.5
		t.Errorf("avg ROAS = %v, expected 0.7", ps.AvgROAS)
	}

	cs := g.StyleClusters["bold"]
	if cs.Count != 1 || cs.Successes != 1 {
		t.Errorf("cluster stats = %+v", cs)
	}
}

func TestApplyOutcomeUnprofitableStillCounts(t *testing.T) {
	g := New("user-1", 0)
	outcome := shared.Outcome{
		CreativeID:   "c-2",
		Platform:     shared.PlatformGoogle,
		StyleCluster: "minimal",
		Metrics:      metricsWith(-0.5, 0.2),
	}

	result := ApplyOutcome(g, outcome)

	if result.RegretTier != shared.RegretTierHardFailure {
		t.Errorf("regret tier = %d, expected hard failure", result.RegretTier)
	}
	if result.RegretSeverity != 1.5 {
		t.Errorf("severity = %v, expected 1.5", result.RegretSeverity)
	}
	if g.Confidence != shared.InitialGenomeConfidence {
		t.Errorf("confidence changed on failure: %v", g.Confidence)
	}
	if g.TotalCreatives != 1 || g.ProfitableCreatives != 0 {
		t.Errorf("counters = (%d, %d)", g.TotalCreatives, g.ProfitableCreatives)
	}
	if g.PlatformSuccess[shared.PlatformGoogle].Total != 1 {
		t.Error("platform total should increment on failure too")
	}
	if len(g.StyleEmbedding) != 0 {
		t.Error("embeddings must not update on failed outcomes")
	}
}

func TestConfidenceCapAt095(t *testing.T) {
	g := New("user-1", 0)
	outcome := shared.Outcome{
		CreativeID: "c-1",
		Platform:   shared.PlatformMeta,
		Metrics:    metricsWith(2.0, 0.9),
	}

	for i := 0; i < 100; i++ {
		ApplyOutcome(g, outcome)
	}

	if g.Confidence > shared.MaxGenomeConfidence {
		t.Fatalf("confidence %v exceeds cap", g.Confidence)
	}
	if math.Abs(g.Confidence-shared.MaxGenomeConfidence) > 1e-9 {
		t.Fatalf("confidence = %v, expected to saturate at cap", g.Confidence)
	}
}

func recentWithROAS(n int, roas, stability float64) []shared.Creative {
	out := make([]shared.Creative, n)
	for i := range out {
		out[i] = shared.Creative{
			ID:      "c",
			Metrics: metricsWith(roas, stability),
		}
	}
	return out
}

func TestShockDecayLowROAS(t *testing.T) {
	g := New("user-1", 0)
	g.Confidence = 0.8

	event, fired := ShockDecay(g, recentWithROAS(5, 0.5, 0.9), 123)
	if !fired {
		t.Fatal("expected shock to fire on rolling ROAS 0.5")
	}
	// Reduction is min(0.2, 0.8*0.3) = 0.2.
	if math.Abs(g.Confidence-0.6) > 1e-9 {
		t.Errorf("confidence after shock = %v, expected 0.6", g.Confidence)
	}
	if event.Before != 0.8 || math.Abs(event.After-0.6) > 1e-9 {
		t.Errorf("event = %+v", event)
	}
	if len(g.MutationHistory) != 1 {
		t.Errorf("mutation history length = %d, expected 1", len(g.MutationHistory))
	}
}

func TestShockDecayLowStability(t *testing.T) {
	g := New("user-1", 0)
	g.Confidence = 0.5

	_, fired := ShockDecay(g, recentWithROAS(6, 1.2, 0.1), 0)
	if !fired {
		t.Fatal("expected stability shock")
	}
	// Reduction is min(0.15, 0.5*0.2) = 0.1.
	if math.Abs(g.Confidence-0.4) > 1e-9 {
		t.Errorf("confidence = %v, expected 0.4", g.Confidence)
	}
}

func TestShockDecayRequiresMinimumWindow(t *testing.T) {
	g := New("user-1", 0)
	g.Confidence = 0.8

	if _, fired := ShockDecay(g, recentWithROAS(4, 0.1, 0.1), 0); fired {
		t.Fatal("shock must not fire below the minimum window")
	}
	if g.Confidence != 0.8 {
		t.Errorf("confidence changed without shock: %v", g.Confidence)
	}
}

func TestShockDecayFloorsAtMinimum(t *testing.T) {
	g := New("user-1", 0)
	g.Confidence = 0.12

	for i := 0; i < 10; i++ {
		ShockDecay(g, recentWithROAS(10, 0.1, 0.1), int64(i))
	}

	if g.Confidence < shared.MinGenomeConfidence {
		t.Fatalf("confidence %v dropped below floor", g.Confidence)
	}
}

func TestShockDecayHealthyWindowNoOp(t *testing.T) {
	g := New("user-1", 0)
	g.Confidence = 0.6

	if _, fired := ShockDecay(g, recentWithROAS(10, 1.5, 0.9), 0); fired {
		t.Fatal("no shock expected on healthy window")
	}
}

func TestMutationHistoryCap(t *testing.T) {
	g := New("user-1", 0)
	g.Confidence = 0.95

	for i := 0; i < 80; i++ {
		g.Confidence = 0.95 // reset so every pass fires
		ShockDecay(g, recentWithROAS(10, 0.1, 0.1), int64(i))
	}

	if len(g.MutationHistory) != shared.MutationHistoryCap {
		t.Fatalf("mutation history = %d entries, expected cap %d", len(g.MutationHistory), shared.MutationHistoryCap)
	}
	// The cap keeps the most recent entries.
	last := g.MutationHistory[len(g.MutationHistory)-1]
	if last.Timestamp != 79 {
		t.Errorf("latest event timestamp = %d, expected 79", last.Timestamp)
	}
}

func TestRefreshEntropy(t *testing.T) {
	g := New("user-1", 0)
	g.StyleClusters["a"] = shared.StyleClusterStats{Count: 10}
	g.StyleClusters["b"] = shared.StyleClusterStats{Count: 10}
	RefreshEntropy(g)

	if math.Abs(g.IntraGenomeEntropy-1.0) > 1e-9 {
		t.Errorf("entropy = %v, expected 1 bit", g.IntraGenomeEntropy)
	}
	if g.LastEntropyState != shared.EntropyHealthy {
		t.Errorf("state = %v, expected healthy", g.LastEntropyState)
	}

	// Heavy skew drops into critical.
	g.StyleClusters["a"] = shared.StyleClusterStats{Count: 97}
	g.StyleClusters["b"] = shared.StyleClusterStats{Count: 3}
	RefreshEntropy(g)
	if g.LastEntropyState != shared.EntropyCritical {
		t.Errorf("state = %v (norm %v), expected critical", g.LastEntropyState, g.LastEntropyValue)
	}
}

func TestStyleEmbeddingDeterministic(t *testing.T) {
	a := StyleEmbedding("bold")
	b := StyleEmbedding("bold")
	c := StyleEmbedding("minimal")

	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same label must produce identical embeddings")
		}
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct labels should produce distinct embeddings")
	}
}
