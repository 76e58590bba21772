// Package stats provides the statistical primitives shared by the ranking,
// learning, and mutation components: Wilson-score smoothing, exponential
// moving averages, Shannon entropy, Bayesian shrinkage, and time decay.
package stats

import "math"

// wilsonZ is the z-score for a 95% lower confidence bound.
const wilsonZ = 1.96

// WilsonScore returns the Wilson lower confidence bound for a success rate.
// With zero samples it returns 0.5 (maximum uncertainty), and for fixed total
// it is non-decreasing in wins.
func WilsonScore(wins, total int) float64 {
	if total <= 0 {
		return 0.5
	}
	n := float64(total)
	p := float64(wins) / n
	z := wilsonZ
	z2 := z * z

	denom := 1 + z2/n
	center := p + z2/(2*n)
	margin := z * math.Sqrt((p*(1-p)+z2/(4*n))/n)

	score := (center - margin) / denom
	if score < 0 {
		return 0
	}
	return score
}

// EMA blends a new observation into a running estimate: higher decay weights
// the new value more heavily.
func EMA(current, observed, decay float64) float64 {
	return current*(1-decay) + observed*decay
}

// EMAVector applies EMA element-wise. The result grows to the length of the
// wider input; positions missing from one side treat that side as zero.
func EMAVector(current, observed []float64, decay float64) []float64 {
	n := len(current)
	if len(observed) > n {
		n = len(observed)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var cur, obs float64
		if i < len(current) {
			cur = current[i]
		}
		if i < len(observed) {
			obs = observed[i]
		}
		out[i] = EMA(cur, obs, decay)
	}
	return out
}

// Entropy returns the Shannon entropy in bits of a count distribution.
// Zero counts contribute nothing; an empty or single-class distribution has
// zero entropy.
func Entropy(counts map[string]int) float64 {
	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// NormalizedEntropy divides the Shannon entropy by the maximum achievable
// with the observed number of active classes, yielding a value in [0, 1].
// Distributions with at most one active class normalize to 1 (nothing to
// diversify yet, so they are not flagged as converged).
func NormalizedEntropy(counts map[string]int) float64 {
	active := 0
	for _, c := range counts {
		if c > 0 {
			active++
		}
	}
	if active <= 1 {
		return 1
	}
	return Entropy(counts) / math.Log2(float64(active))
}

// TimeDecay returns value * exp(-rate * ageDays). Negative ages clamp to zero.
func TimeDecay(value, rate, ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return value * math.Exp(-rate*ageDays)
}

// ShrinkTowardPrior returns a Bayesian-shrunk estimate of observed toward
// priorMean, with sampleSize pseudo-observations backing the observed value
// against one pseudo-observation of the prior. Small samples stay close to
// the prior; large samples trust the observation.
func ShrinkTowardPrior(observed, priorMean, sampleSize float64) float64 {
	if sampleSize < 0 {
		sampleSize = 0
	}
	const priorStrength = 1.0
	return (observed*sampleSize + priorMean*priorStrength) / (sampleSize + priorStrength)
}

// SampleSizeFromSpend derives the sample-size proxy used for ROI shrinkage:
// one pseudo-observation per 100 units of spend, capped at cap.
func SampleSizeFromSpend(spend, cap float64) float64 {
	if spend <= 0 {
		return 0
	}
	n := spend / 100
	if n > cap {
		return cap
	}
	return n
}

// Variance returns the population variance of values; zero for fewer than
// two samples.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(values))
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
