package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/retrieval"
	"github.com/hybridrag/hybridrag/types"
)

// Classic is the single-shot retrieve-and-generate pipeline.
type Classic struct {
	completer llm.Completer
	embedder  llm.Embedder
	retriever retrieval.Retriever
	topK      int
	logger    *zap.Logger
}

var _ Pipeline = (*Classic)(nil)

// NewClassic creates the classic pipeline.
func NewClassic(completer llm.Completer, embedder llm.Embedder, retriever retrieval.Retriever, topK int, logger *zap.Logger) *Classic {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classic{
		completer: completer,
		embedder:  embedder,
		retriever: retriever,
		topK:      topK,
		logger:    logger.With(zap.String("component", "classic_pipeline")),
	}
}

// Strategy identifies the pipeline.
func (p *Classic) Strategy() types.Strategy { return types.StrategyClassic }

// Execute retrieves context for the query and generates the answer. The
// query embedding is computed once and stored on the metadata for reuse.
func (p *Classic) Execute(ctx context.Context, meta *types.QueryMetadata) (*types.QueryResult, error) {
	if meta.Embedding == nil && p.embedder != nil {
		embedding, err := p.embedder.Embed(ctx, meta.OriginalQuery)
		if err != nil {
			return nil, err
		}
		meta.Embedding = embedding
	}

	var docs []types.Document
	if p.retriever != nil && meta.Embedding != nil {
		var err error
		docs, err = p.retriever.Retrieve(ctx, meta.Embedding, p.topK)
		if err != nil {
			return nil, err
		}
	}

	prompt := buildPrompt(meta.OriginalQuery, docs)
	completion, err := p.completer.Complete(ctx, prompt, &llm.CompleteOptions{
		System: "Answer the question using the provided context. Say so when the context does not contain the answer.",
	})
	if err != nil {
		return nil, err
	}

	relevance := meanScore(docs)
	confidence := relevance
	if len(docs) == 0 {
		confidence = 0.6
	}

	p.logger.Debug("classic pipeline complete",
		zap.String("query_id", meta.QueryID),
		zap.Int("documents", len(docs)),
		zap.Float64("relevance", relevance))

	return &types.QueryResult{
		Answer:             completion.Text,
		StrategyUsed:       types.StrategyClassic,
		ConfidenceScore:    confidence,
		RelevanceScore:     relevance,
		TokensUsed:         completion.Usage.TotalTokens,
		CostUSD:            completion.Usage.CostUSD,
		DocumentsRetrieved: docs,
		ExecutionPath:      []string{"embed", "retrieve", "generate"},
	}, nil
}

func buildPrompt(query string, docs []types.Document) string {
	var b strings.Builder
	if len(docs) > 0 {
		b.WriteString("Context:\n")
		for i, doc := range docs {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, doc.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}

func meanScore(docs []types.Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	sum := 0.0
	for _, doc := range docs {
		sum += doc.Score
	}
	return sum / float64(len(docs))
}
