// Package embedding implements the embedding manager of spec.md §4.6:
// batched text-to-vector encoding behind a persistent cache, plus the
// item-to-item and item-to-ancestor-chain similarity functions the
// disambiguator (internal/disambig) consumes.
package embedding

import (
	"context"
	"math"
)

// Encoder is the external text-to-vector model the pipeline treats as
// a black box (spec.md §1): given a batch of strings it returns the
// same number of float32 vectors of a fixed dimension.
//
// Ground: narrowed from the teacher's embedding.EmbeddingEngine
// interface (internal/embedding/engine.go in the teacher), dropping
// Name/HealthChecker and the provider-selection Config/NewEngine
// factory that picked between Ollama and GenAI clients — this spec
// has no vendor-specific model client of its own (see DESIGN.md for
// the dropped genai/ollama teacher files). HTTPEncoder is the one
// concrete implementation wired in, a generic wire client rather than
// a vendor SDK.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 if
// either is empty, of mismatched length, or has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, am, bm float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		am += float64(a[i]) * float64(a[i])
		bm += float64(b[i]) * float64(b[i])
	}
	if am == 0 || bm == 0 {
		return 0
	}
	return dot / (math.Sqrt(am) * math.Sqrt(bm))
}
