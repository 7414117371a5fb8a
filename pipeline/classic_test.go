package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/types"
)

type fakeCompleter struct {
	text    string
	err     error
	prompts []string
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string, opts *llm.CompleteOptions) (*llm.Completion, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Completion{
		Text:  c.text,
		Usage: llm.Usage{TotalTokens: 30, CostUSD: 0.002},
	}, nil
}

type fakeEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls++
	return e.vec, e.err
}

func (e *fakeEmbedder) Dimensions() int { return len(e.vec) }

type fakeRetriever struct {
	docs []types.Document
	err  error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, embedding []float64, topK int) ([]types.Document, error) {
	return r.docs, r.err
}

func (r *fakeRetriever) Add(ctx context.Context, docs []types.Document) error { return nil }

func (r *fakeRetriever) Count(ctx context.Context) (int, error) { return len(r.docs), nil }

func TestClassic_Execute(t *testing.T) {
	completer := &fakeCompleter{text: "Paris."}
	embedder := &fakeEmbedder{vec: []float64{1, 0}}
	retriever := &fakeRetriever{docs: []types.Document{
		{DocID: "d1", Content: "Paris is the capital of France.", Score: 0.9},
		{DocID: "d2", Content: "France is in Europe.", Score: 0.7},
	}}
	p := NewClassic(completer, embedder, retriever, 5, nil)

	meta := &types.QueryMetadata{QueryID: "q1", OriginalQuery: "capital of France?"}
	result, err := p.Execute(context.Background(), meta)
	require.NoError(t, err)

	assert.Equal(t, "Paris.", result.Answer)
	assert.Equal(t, types.StrategyClassic, result.StrategyUsed)
	assert.InDelta(t, 0.8, result.RelevanceScore, 1e-9)
	assert.InDelta(t, 0.8, result.ConfidenceScore, 1e-9)
	assert.Len(t, result.DocumentsRetrieved, 2)
	assert.Equal(t, 30, result.TokensUsed)
	assert.Contains(t, completer.prompts[0], "Paris is the capital of France.")

	// The embedding is stored on the metadata for reuse.
	assert.Equal(t, []float64{1, 0}, meta.Embedding)
}

func TestClassic_EmbeddingComputedOnce(t *testing.T) {
	completer := &fakeCompleter{text: "answer"}
	embedder := &fakeEmbedder{vec: []float64{1, 0}}
	p := NewClassic(completer, embedder, &fakeRetriever{}, 5, nil)

	meta := &types.QueryMetadata{OriginalQuery: "q", Embedding: []float64{0, 1}}
	_, err := p.Execute(context.Background(), meta)
	require.NoError(t, err)

	assert.Equal(t, 0, embedder.calls, "existing embedding must not be recomputed")
	assert.Equal(t, []float64{0, 1}, meta.Embedding)
}

func TestClassic_NoDocuments(t *testing.T) {
	completer := &fakeCompleter{text: "I do not know."}
	p := NewClassic(completer, &fakeEmbedder{vec: []float64{1}}, &fakeRetriever{}, 5, nil)

	result, err := p.Execute(context.Background(), &types.QueryMetadata{OriginalQuery: "q"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.RelevanceScore)
	assert.Equal(t, 0.6, result.ConfidenceScore)
}

func TestClassic_EmbedFailure(t *testing.T) {
	p := NewClassic(&fakeCompleter{text: "x"}, &fakeEmbedder{err: errors.New("embed down")}, &fakeRetriever{}, 5, nil)

	_, err := p.Execute(context.Background(), &types.QueryMetadata{OriginalQuery: "q"})
	require.Error(t, err)
}

func TestClassic_RetrieveFailure(t *testing.T) {
	p := NewClassic(&fakeCompleter{text: "x"}, &fakeEmbedder{vec: []float64{1}}, &fakeRetriever{err: errors.New("index down")}, 5, nil)

	_, err := p.Execute(context.Background(), &types.QueryMetadata{OriginalQuery: "q"})
	require.Error(t, err)
}
