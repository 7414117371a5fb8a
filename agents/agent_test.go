package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridrag/hybridrag/types"
)

type fakeEmbedder struct {
	vec []float64
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
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

func TestResearchAgent_AttachesSources(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"findings"}}
	retriever := &fakeRetriever{docs: []types.Document{
		{DocID: "doc-1", Content: "fact one"},
		{DocID: "doc-2", Content: "fact two"},
	}}
	agent := NewResearchAgent(completer, retriever, &fakeEmbedder{vec: []float64{1, 0}}, nil)

	result, err := agent.Execute(context.Background(), Task{Description: "gather facts"}, nil)
	require.NoError(t, err)

	assert.Equal(t, types.AgentResearch, result.AgentType)
	assert.Equal(t, "findings", result.Result)
	assert.Equal(t, []string{"doc-1", "doc-2"}, result.Sources)
	assert.Equal(t, 0.8, result.Confidence)
	assert.NotEmpty(t, result.AgentID)
	// Retrieved content flows into the prompt.
	assert.Contains(t, completer.prompts[0], "fact one")
}

func TestResearchAgent_SurvivesRetrievalFailure(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"findings"}}
	retriever := &fakeRetriever{err: errors.New("index down")}
	agent := NewResearchAgent(completer, retriever, &fakeEmbedder{vec: []float64{1, 0}}, nil)

	result, err := agent.Execute(context.Background(), Task{Description: "gather facts"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}

func TestAnalysisAgent_SeesPriorResults(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"analysis"}}
	agent := NewAnalysisAgent(completer, nil)

	prior := []Result{{AgentResult: types.AgentResult{
		AgentType: types.AgentResearch,
		Result:    "the sky is blue",
	}}}
	result, err := agent.Execute(context.Background(), Task{Description: "analyse"}, prior)
	require.NoError(t, err)

	assert.Equal(t, types.AgentAnalysis, result.AgentType)
	assert.Contains(t, completer.prompts[0], "the sky is blue")
}

func TestAgent_CompleterFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("llm down")}
	agent := NewSynthesisAgent(completer, nil)

	_, err := agent.Execute(context.Background(), Task{Description: "merge"}, nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrPipelineFailed))
}
