package mutation

import (
	"fmt"
	"sort"

	"github.com/adforge/creative-engine-go/internal/domain/stats"
	"github.com/adforge/creative-engine-go/internal/shared"
)

// Exploit thresholds.
const (
	exploitMinConfidence  = 0.5
	exploitMinSamples     = 3
	exploitStyleRateFloor = 0.6
	exploitMaxStyleSwaps  = 2
)

// Explore thresholds.
const (
	exploreEntropyCeiling    = 0.6
	exploreCTAEntropyCeiling = 0.4
	exploreMinSamples        = 1
	exploreMaxSamples        = 4
	exploreROASFloor         = 0.8
	exploreMaxPlatformSwaps  = 2
	exploreCTAScore          = 0.2
)

// Regret-avoidance thresholds.
const (
	regretSeverityFloor = 0.3
	regretMaxMatches    = 3
)

// exploit proposes swaps toward the genome's proven winners. Active only
// with a trusted genome and a goal that rewards exploitation.
func exploit(base shared.Creative, ctx Context) []Candidate {
	g := ctx.Genome
	if g == nil || g.Confidence <= exploitMinConfidence {
		return nil
	}
	if ctx.Goal != shared.GoalBalanced && ctx.Goal != shared.GoalROI {
		return nil
	}

	var out []Candidate

	if top, score, ok := topPlatform(g); ok && top != base.Platform {
		key := Key(shared.SourceExploit, base.ID, "platform", string(top))
		out = append(out, Candidate{
			Creative: derive(base, key, func(c *shared.Creative) {
				c.Platform = top
			}),
			Event: shared.MutationEvent{
				CreativeID:    base.ID,
				MutationKey:   key,
				Source:        shared.SourceExploit,
				RankBefore:    base.RankPosition,
				MutationScore: score,
				Mutations: []shared.Mutation{{
					Type:   "platform_swap",
					Param:  "platform",
					From:   string(base.Platform),
					To:     string(top),
					Reason: fmt.Sprintf("platform %s leads the learned composite score (%.2f)", top, score),
				}},
			},
		})
	}

	for _, sc := range topStyleClusters(g, base.StyleCluster) {
		key := Key(shared.SourceExploit, base.ID, "style_cluster", sc.name)
		out = append(out, Candidate{
			Creative: derive(base, key, func(c *shared.Creative) {
				c.StyleCluster = sc.name
			}),
			Event: shared.MutationEvent{
				CreativeID:    base.ID,
				MutationKey:   key,
				Source:        shared.SourceExploit,
				RankBefore:    base.RankPosition,
				MutationScore: sc.rate,
				Mutations: []shared.Mutation{{
					Type:   "style_swap",
					Param:  "style_cluster",
					From:   base.StyleCluster,
					To:     sc.name,
					Reason: fmt.Sprintf("style cluster %s succeeds at a %.0f%% smoothed rate", sc.name, sc.rate*100),
				}},
			},
		})
	}

	return out
}

// topPlatform ranks platforms with enough samples by the exploit composite
// score 0.7*wilson + 0.3*min(avgROAS/2, 1).
func topPlatform(g *shared.Genome) (shared.Platform, float64, bool) {
	var best shared.Platform
	bestScore := -1.0
	for _, p := range shared.Platforms() {
		ps, ok := g.PlatformSuccess[p]
		if !ok || ps.Total < exploitMinSamples {
			continue
		}
		score := 0.7*stats.WilsonScore(ps.Wins, ps.Total) + 0.3*stats.Clamp(ps.AvgROAS/2, 0, 1)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best, bestScore, bestScore >= 0
}

type styleCandidate struct {
	name string
	rate float64
}

// topStyleClusters selects up to two clusters (excluding the base's own)
// whose smoothed success rate clears the exploit floor, best first.
// Names tie-break deterministically.
func topStyleClusters(g *shared.Genome, exclude string) []styleCandidate {
	candidates := make([]styleCandidate, 0)
	for name, cs := range g.StyleClusters {
		if name == exclude {
			continue
		}
		if cs.Count < exploitMinSamples && cs.SmoothedRate <= exploitStyleRateFloor {
			continue
		}
		if cs.SmoothedRate > exploitStyleRateFloor {
			candidates = append(candidates, styleCandidate{name: name, rate: cs.SmoothedRate})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > exploitMaxStyleSwaps {
		candidates = candidates[:exploitMaxStyleSwaps]
	}
	return candidates
}

// explore proposes swaps toward under-tried combinations. Active when style
// variety is low or the caller explicitly asks for exploration.
func explore(base shared.Creative, ctx Context) []Candidate {
	if ctx.NormalizedEntropy >= exploreEntropyCeiling && ctx.Goal != shared.GoalExploration {
		return nil
	}

	var out []Candidate
	out = append(out, explorePlatforms(base, ctx)...)

	if ctx.NormalizedEntropy < exploreCTAEntropyCeiling {
		if cand, ok := exploreCTA(base); ok {
			out = append(out, cand)
		}
	}

	return out
}

// explorePlatforms finds platforms with a thin but promising sample and
// proposes up to two swaps toward the best of them.
func explorePlatforms(base shared.Creative, ctx Context) []Candidate {
	if ctx.Genome == nil {
		return nil
	}

	riskAppetite := ctx.Genome.BaselineRiskAppetite
	explorationBoost := (exploreCTAEntropyCeiling - ctx.NormalizedEntropy) * 2
	if explorationBoost < 0 {
		explorationBoost = 0
	}

	type scored struct {
		platform shared.Platform
		score    float64
		avgROAS  float64
	}
	candidates := make([]scored, 0)
	for _, p := range shared.Platforms() {
		if p == base.Platform {
			continue
		}
		ps, ok := ctx.Genome.PlatformSuccess[p]
		if !ok || ps.Total < exploreMinSamples || ps.Total > exploreMaxSamples {
			continue
		}
		if ps.AvgROAS <= exploreROASFloor {
			continue
		}
		candidates = append(candidates, scored{
			platform: p,
			score:    ps.AvgROAS * (1 + explorationBoost) * riskAppetite,
			avgROAS:  ps.AvgROAS,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].platform < candidates[j].platform
	})
	if len(candidates) > exploreMaxPlatformSwaps {
		candidates = candidates[:exploreMaxPlatformSwaps]
	}

	out := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		cand := cand
		key := Key(shared.SourceExplore, base.ID, "platform", string(cand.platform))
		out = append(out, Candidate{
			Creative: derive(base, key, func(c *shared.Creative) {
				c.Platform = cand.platform
			}),
			Event: shared.MutationEvent{
				CreativeID:    base.ID,
				MutationKey:   key,
				Source:        shared.SourceExplore,
				RankBefore:    base.RankPosition,
				MutationScore: cand.score,
				Mutations: []shared.Mutation{{
					Type:   "platform_swap",
					Param:  "platform",
					From:   string(base.Platform),
					To:     string(cand.platform),
					Reason: fmt.Sprintf("platform %s is under-explored with avg ROAS %.2f", cand.platform, cand.avgROAS),
				}},
			},
		})
	}
	return out
}

// exploreCTA proposes one deterministic call-to-action swap, seeded by the
// base creative id so repeated calls pick the same alternative.
func exploreCTA(base shared.Creative) (Candidate, bool) {
	current, _ := base.CreativeData["cta"].(string)
	next, ok := SeededPick("cta:"+base.ID, CTAVocabulary, current)
	if !ok {
		return Candidate{}, false
	}

	key := Key(shared.SourceExplore, base.ID, "cta", next)
	return Candidate{
		Creative: derive(base, key, func(c *shared.Creative) {
			if c.CreativeData == nil {
				c.CreativeData = make(map[string]interface{})
			}
			c.CreativeData["cta"] = next
		}),
		Event: shared.MutationEvent{
			CreativeID:    base.ID,
			MutationKey:   key,
			Source:        shared.SourceExplore,
			RankBefore:    base.RankPosition,
			MutationScore: exploreCTAScore,
			Mutations: []shared.Mutation{{
				Type:   "cta_swap",
				Param:  "cta",
				From:   current,
				To:     next,
				Reason: "low style variety, probing a different call to action",
			}},
		},
	}, true
}

// avoidRegret steers bases away from recorded tier-1 failure patterns.
// Cluster matches swap to a deterministic alternative style; platform
// matches swap away from the regretted platform. Scores are negative,
// proportional to the decayed severity.
func avoidRegret(base shared.Creative, ctx Context) []Candidate {
	if len(ctx.Regrets) == 0 {
		return nil
	}

	var out []Candidate
	matches := 0
	for _, r := range ctx.Regrets {
		if matches >= regretMaxMatches {
			break
		}
		if r.Tier != shared.RegretTierHardFailure {
			continue
		}
		severity := r.DecayedSeverity(ctx.Now)
		if severity <= regretSeverityFloor {
			continue
		}

		switch {
		case r.Context.StyleCluster == base.StyleCluster && base.StyleCluster != "":
			matches++
			alt, ok := SeededPick("regret:"+base.ID+":"+r.ID, StyleVocabulary, base.StyleCluster)
			if !ok {
				continue
			}
			key := Key(shared.SourceRegretAvoidance, base.ID, "style_cluster", alt)
			out = append(out, Candidate{
				Creative: derive(base, key, func(c *shared.Creative) {
					c.StyleCluster = alt
				}),
				Event: shared.MutationEvent{
					CreativeID:    base.ID,
					MutationKey:   key,
					Source:        shared.SourceRegretAvoidance,
					RankBefore:    base.RankPosition,
					MutationScore: -severity,
					Mutations: []shared.Mutation{{
						Type:   "style_swap",
						Param:  "style_cluster",
						From:   base.StyleCluster,
						To:     alt,
						Reason: fmt.Sprintf("style %s matches a hard-failure pattern (severity %.2f)", base.StyleCluster, severity),
					}},
				},
			})
		case r.Context.Platform == base.Platform:
			matches++
			alt, ok := alternatePlatform(base.Platform, "regret:"+base.ID+":"+r.ID)
			if !ok {
				continue
			}
			key := Key(shared.SourceRegretAvoidance, base.ID, "platform", string(alt))
			out = append(out, Candidate{
				Creative: derive(base, key, func(c *shared.Creative) {
					c.Platform = alt
				}),
				Event: shared.MutationEvent{
					CreativeID:    base.ID,
					MutationKey:   key,
					Source:        shared.SourceRegretAvoidance,
					RankBefore:    base.RankPosition,
					MutationScore: -severity,
					Mutations: []shared.Mutation{{
						Type:   "platform_swap",
						Param:  "platform",
						From:   string(base.Platform),
						To:     string(alt),
						Reason: fmt.Sprintf("platform %s matches a hard-failure pattern (severity %.2f)", base.Platform, severity),
					}},
				},
			})
		}
	}
	return out
}

func alternatePlatform(current shared.Platform, seed string) (shared.Platform, bool) {
	options := make([]string, 0, 4)
	for _, p := range shared.Platforms() {
		if p != current {
			options = append(options, string(p))
		}
	}
	pick, ok := SeededPick(seed, options, "")
	return shared.Platform(pick), ok
}
