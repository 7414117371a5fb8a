package retrieval

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

// InMemoryIndex is a brute-force vector index held in memory.
type InMemoryIndex struct {
	mu     sync.RWMutex
	docs   []types.Document
	logger *zap.Logger
}

var _ Retriever = (*InMemoryIndex)(nil)

// NewInMemoryIndex creates an empty in-memory index.
func NewInMemoryIndex(logger *zap.Logger) *InMemoryIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryIndex{
		docs:   make([]types.Document, 0),
		logger: logger.With(zap.String("component", "memory_index")),
	}
}

// Add indexes documents.
func (s *InMemoryIndex) Add(ctx context.Context, docs []types.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if doc.Embedding == nil {
			return types.NewError(types.ErrInvalidQuery, "document "+doc.DocID+" has no embedding")
		}
		s.docs = append(s.docs, doc)
	}

	s.logger.Debug("documents indexed",
		zap.Int("count", len(docs)),
		zap.Int("total", len(s.docs)))
	return nil
}

// Retrieve scans all documents and returns the topK by cosine similarity.
func (s *InMemoryIndex) Retrieve(ctx context.Context, embedding []float64, topK int) ([]types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 || topK <= 0 {
		return []types.Document{}, nil
	}

	scored := make([]types.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.Embedding == nil {
			continue
		}
		d := doc
		d.Score = CosineSimilarity(embedding, doc.Embedding)
		scored = append(scored, d)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Count returns the number of indexed documents.
func (s *InMemoryIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}
