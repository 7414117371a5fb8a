// Package retrieval provides document retrieval over vector indexes. An
// in-memory index serves tests and small corpora; a qdrant-backed index
// serves production deployments.
package retrieval

import (
	"context"
	"math"

	"github.com/hybridrag/hybridrag/types"
)

// Retriever finds the documents most similar to a query embedding.
type Retriever interface {
	// Retrieve returns up to topK documents ordered by decreasing score.
	Retrieve(ctx context.Context, embedding []float64, topK int) ([]types.Document, error)

	// Add indexes documents. Every document must carry an embedding.
	Add(ctx context.Context, docs []types.Document) error

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity computes the cosine similarity of two vectors. Returns 0
// for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
