// Package shared provides shared types used across all modules of the creative engine.
package shared

import (
	"fmt"
	"math"
	"time"
)

// ============================================================================
// Creative Types
// ============================================================================

// Platform identifies the advertising platform a creative targets.
type Platform string

const (
	PlatformMeta     Platform = "meta"
	PlatformGoogle   Platform = "google"
	PlatformTikTok   Platform = "tiktok"
	PlatformLinkedIn Platform = "linkedin"
	PlatformX        Platform = "x"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{PlatformMeta, PlatformGoogle, PlatformTikTok, PlatformLinkedIn, PlatformX}
}

// IsValidPlatform reports whether p is a known platform.
func IsValidPlatform(p Platform) bool {
	switch p {
	case PlatformMeta, PlatformGoogle, PlatformTikTok, PlatformLinkedIn, PlatformX:
		return true
	}
	return false
}

// PerformanceMetrics holds observed outcome metrics for a creative.
// All numeric fields are optional; nil means "not yet observed" and scoring
// falls back to documented neutral defaults.
type PerformanceMetrics struct {
	CTR             *float64  `json:"ctr,omitempty"`
	CPA             *float64  `json:"cpa,omitempty"`
	ROAS            *float64  `json:"roas,omitempty"`
	ConversionRate  *float64  `json:"conversion_rate,omitempty"`
	Spend           *float64  `json:"spend,omitempty"`
	DecayCurve      []float64 `json:"decay_curve,omitempty"`
	EngagementDecay *float64  `json:"engagement_decay,omitempty"`
	PolicyFlags     []string  `json:"policy_flags,omitempty"`
	StabilityScore  *float64  `json:"stability_score,omitempty"`
}

// ROASOr returns the ROAS value or def when unobserved.
func (m PerformanceMetrics) ROASOr(def float64) float64 {
	if m.ROAS != nil {
		return *m.ROAS
	}
	return def
}

// SpendOr returns the spend value or def when unobserved.
func (m PerformanceMetrics) SpendOr(def float64) float64 {
	if m.Spend != nil {
		return *m.Spend
	}
	return def
}

// StabilityOr returns the stability score or def when unobserved.
func (m PerformanceMetrics) StabilityOr(def float64) float64 {
	if m.StabilityScore != nil {
		return *m.StabilityScore
	}
	return def
}

// CTROr returns the CTR value or def when unobserved.
func (m PerformanceMetrics) CTROr(def float64) float64 {
	if m.CTR != nil {
		return *m.CTR
	}
	return def
}

// ConversionRateOr returns the conversion rate or def when unobserved.
func (m PerformanceMetrics) ConversionRateOr(def float64) float64 {
	if m.ConversionRate != nil {
		return *m.ConversionRate
	}
	return def
}

// Creative represents a single ad-candidate record.
type Creative struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	CampaignID   string                 `json:"campaign_id,omitempty"`
	Platform     Platform               `json:"platform"`
	CreativeData map[string]interface{} `json:"creative_data,omitempty"`
	Metrics      PerformanceMetrics     `json:"performance_metrics"`
	StyleCluster string                 `json:"style_cluster,omitempty"`

	// Derived by the ranker; not authoritative until ranking runs.
	UtilityScore float64 `json:"utility_score,omitempty"`
	RankPosition int     `json:"rank_position,omitempty"`
	Gated        bool    `json:"gated,omitempty"`
	GateReason   string  `json:"gate_reason,omitempty"`

	// Set on mutated candidates: the parent creative id plus the stable
	// mutation key the variant was generated under.
	MutationParentID string `json:"mutation_parent_id,omitempty"`
	MutationKey      string `json:"mutation_key,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// ============================================================================
// Genome Types
// ============================================================================

// EntropyState labels the health of a genome's style diversity.
type EntropyState string

const (
	EntropyHealthy  EntropyState = "healthy"
	EntropyWarning  EntropyState = "warning"
	EntropyCritical EntropyState = "critical"
)

// Genome confidence bounds.
const (
	MinGenomeConfidence     = 0.1
	MaxGenomeConfidence     = 0.95
	InitialGenomeConfidence = 0.1
)

// MutationHistoryCap bounds the genome's confidence-shock log.
const MutationHistoryCap = 50

// PlatformStats accumulates per-platform outcome counts for a genome.
type PlatformStats struct {
	Wins         int     `json:"wins"`
	Total        int     `json:"total"`
	SmoothedRate float64 `json:"smoothed_rate"`
	AvgROAS      float64 `json:"avg_roas"`
}

// StyleClusterStats accumulates per-style-cluster outcome counts for a genome.
type StyleClusterStats struct {
	Count        int     `json:"count"`
	Successes    int     `json:"successes"`
	SmoothedRate float64 `json:"smoothed_rate"`
}

// ShockEvent records one confidence-shock adjustment in the genome history.
type ShockEvent struct {
	Reason    string  `json:"reason"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
	Timestamp int64   `json:"timestamp"`
}

// Genome is the persistent per-user learned preference model. Exactly one
// row exists per user; the genome learner is its only writer.
type Genome struct {
	UserID               string                        `json:"user_id"`
	Confidence           float64                       `json:"genome_confidence"`
	StyleEmbedding       []float64                     `json:"style_embedding,omitempty"`
	OutcomeEmbedding     []float64                     `json:"outcome_embedding,omitempty"`
	PlatformSuccess      map[Platform]PlatformStats    `json:"platform_success"`
	StyleClusters        map[string]StyleClusterStats  `json:"style_clusters"`
	TotalCreatives       int                           `json:"total_creatives"`
	ProfitableCreatives  int                           `json:"profitable_creatives"`
	BaselineRiskAppetite float64                       `json:"baseline_risk_appetite"`
	IntraGenomeEntropy   float64                       `json:"intra_genome_entropy"`
	LastEntropyState     EntropyState                  `json:"last_entropy_state"`
	LastEntropyValue     float64                       `json:"last_entropy_value"`
	MutationHistory      []ShockEvent                  `json:"mutation_history,omitempty"`
	UpdatedAt            int64                         `json:"updated_at"`
}

// ============================================================================
// Regret Memory Types
// ============================================================================

// Regret tiers, ordered by severity of the recorded failure.
const (
	RegretTierHardFailure = 1 // ROAS < 0
	RegretTierNearMiss    = 2 // 0 <= ROAS < 0.8
	RegretTierUnstable    = 3 // profitable but unstable
)

// RegretSeverityDecayRate controls the exponential read-time decay of severity.
const RegretSeverityDecayRate = 0.05

// RegretContext captures the conditions at the time a regret was recorded.
type RegretContext struct {
	Platform     Platform `json:"platform"`
	StyleCluster string   `json:"style_cluster"`
	ROAS         float64  `json:"roas"`
	Spend        float64  `json:"spend"`
}

// RegretEntry is an append-only record of a non-ideal outcome. Entries are
// immutable after creation; severity decays at read time, never in storage.
type RegretEntry struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	CreativeID      string        `json:"creative_id"`
	Tier            int           `json:"tier"`
	Context         RegretContext `json:"context"`
	VolatilityScore float64       `json:"volatility_score"`
	Severity        float64       `json:"severity"`
	CreatedAt       int64         `json:"created_at"`
}

// DecayedSeverity returns the effective severity at the given time,
// decayed as severity * exp(-0.05 * ageDays). The stored value is untouched.
func (r RegretEntry) DecayedSeverity(now time.Time) float64 {
	ageDays := float64(now.UnixMilli()-r.CreatedAt) / float64(24*time.Hour/time.Millisecond)
	if ageDays < 0 {
		ageDays = 0
	}
	return r.Severity * math.Exp(-RegretSeverityDecayRate*ageDays)
}

// ============================================================================
// Mutation Types
// ============================================================================

// MutationSource identifies the strategy that produced a variant.
type MutationSource string

const (
	SourceExploit         MutationSource = "exploit"
	SourceExplore         MutationSource = "explore"
	SourceRegretAvoidance MutationSource = "regret_avoidance"
)

// OptimizationGoal steers which mutation strategies are active.
type OptimizationGoal string

const (
	GoalBalanced    OptimizationGoal = "balanced"
	GoalROI         OptimizationGoal = "roi"
	GoalExploration OptimizationGoal = "exploration"
)

// Mutation describes one field change applied to a parent creative.
type Mutation struct {
	Type   string `json:"type"`
	Param  string `json:"param"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// MutationEvent is the audit record of one generated variant.
type MutationEvent struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	CreativeID    string         `json:"creative_id"`
	CampaignID    string         `json:"campaign_id,omitempty"`
	MutationKey   string         `json:"mutation_key"`
	Mutations     []Mutation     `json:"mutations"`
	MutationScore float64        `json:"mutation_score"`
	Source        MutationSource `json:"source"`
	RankBefore    int            `json:"rank_before"`
	Applied       bool           `json:"applied"`
	CreatedAt     int64          `json:"created_at"`
}

// ============================================================================
// Outcome Types
// ============================================================================

// Outcome is one real-world performance report for a previously ranked
// creative. The caller-supplied profitability/stability flags are advisory:
// the learner recomputes both from the metrics.
type Outcome struct {
	CreativeID   string             `json:"creative_id"`
	Platform     Platform           `json:"platform"`
	StyleCluster string             `json:"style_cluster"`
	Metrics      PerformanceMetrics `json:"performance_metrics"`
	IsProfitable *bool              `json:"is_profitable,omitempty"`
	IsStable     *bool              `json:"is_stable,omitempty"`
}

// ============================================================================
// Event Types
// ============================================================================

// EventType identifies an engine lifecycle event.
type EventType string

const (
	EventRankCompleted     EventType = "rank:completed"
	EventGenomeUpdated     EventType = "genome:updated"
	EventGenomeShock       EventType = "genome:shock"
	EventMutationGenerated EventType = "mutation:generated"
)

// Event is an engine lifecycle event published on the event bus.
type Event struct {
	Type      EventType              `json:"type"`
	UserID    string                 `json:"user_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// ============================================================================
// Error Types
// ============================================================================

// EngineError is the base error type for all creative-engine errors.
type EngineError struct {
	Message string
	Code    string
	Details map[string]interface{}
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewEngineError creates a new EngineError.
func NewEngineError(message, code string, details map[string]interface{}) *EngineError {
	return &EngineError{
		Message: message,
		Code:    code,
		Details: details,
	}
}

// AuthError represents a missing or invalid caller credential.
type AuthError struct {
	EngineError
}

// NewAuthError creates a new AuthError.
func NewAuthError(message string, details map[string]interface{}) *AuthError {
	return &AuthError{
		EngineError: EngineError{
			Message: message,
			Code:    "AUTH_ERROR",
			Details: details,
		},
	}
}

// ValidationError represents invalid request input.
type ValidationError struct {
	EngineError
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, details map[string]interface{}) *ValidationError {
	return &ValidationError{
		EngineError: EngineError{
			Message: message,
			Code:    "VALIDATION_ERROR",
			Details: details,
		},
	}
}

// NotFoundError represents a referenced record that does not exist.
type NotFoundError struct {
	EngineError
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(message string, details map[string]interface{}) *NotFoundError {
	return &NotFoundError{
		EngineError: EngineError{
			Message: message,
			Code:    "NOT_FOUND",
			Details: details,
		},
	}
}

// StoreError represents a backing-store read or write failure.
type StoreError struct {
	EngineError
}

// NewStoreError creates a new StoreError.
func NewStoreError(message string, details map[string]interface{}) *StoreError {
	return &StoreError{
		EngineError: EngineError{
			Message: message,
			Code:    "STORE_ERROR",
			Details: details,
		},
	}
}

// ============================================================================
// Utility Functions
// ============================================================================

// Now returns the current time in milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Float64Ptr returns a pointer to v. Convenience for optional metric fields.
func Float64Ptr(v float64) *float64 {
	return &v
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}
