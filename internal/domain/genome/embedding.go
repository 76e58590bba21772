package genome

import (
	"hash/fnv"
	"math"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// StyleEmbeddingDims is the dimensionality of hash-derived style embeddings.
const StyleEmbeddingDims = 8

// StyleEmbedding derives a deterministic embedding from a style-cluster
// label using multiple FNV-1a hash passes. The same label always produces
// the same vector, so EMA updates converge per cluster.
func StyleEmbedding(label string) []float64 {
	if label == "" {
		return make([]float64, StyleEmbeddingDims)
	}

	embedding := make([]float64, StyleEmbeddingDims)
	for pass := 0; pass < StyleEmbeddingDims; pass++ {
		h := fnv.New64a()
		h.Write([]byte{byte(pass)})
		h.Write([]byte(label))
		// Map the hash onto [-1, 1].
		embedding[pass] = float64(int64(h.Sum64())) / math.MaxInt64
	}
	return normalize(embedding)
}

// OutcomeEmbedding derives a deterministic embedding from an outcome's
// metric vector.
func OutcomeEmbedding(m shared.PerformanceMetrics, profitable, stable bool) []float64 {
	return []float64{
		m.ROASOr(0),
		m.CTROr(0),
		m.ConversionRateOr(0),
		m.StabilityOr(0),
		boolToFloat(profitable),
		boolToFloat(stable),
	}
}

func normalize(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
