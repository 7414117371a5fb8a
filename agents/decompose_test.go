package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/types"
)

// scriptedCompleter returns canned completions in order, then repeats the
// last one.
type scriptedCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt string, opts *llm.CompleteOptions) (*llm.Completion, error) {
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return nil, c.err
	}
	idx := c.calls - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return &llm.Completion{
		Text:  c.responses[idx],
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20, CostUSD: 0.001},
	}, nil
}

func TestParseTaskList(t *testing.T) {
	text := `Here is the plan:
1. Subtask: Find sales figures for 2024
   Type: research
   Priority: high
2. Subtask: Compare against the 2023 baseline
   Type: analysis
   Priority: medium
3. Subtask: Write the summary
   Type: synthesis
   Priority: low`

	tasks := parseTaskList(text)
	require.Len(t, tasks, 3)
	assert.Equal(t, "Find sales figures for 2024", tasks[0].Description)
	assert.Equal(t, types.AgentResearch, tasks[0].Type)
	assert.Equal(t, "high", tasks[0].Priority)
	assert.Equal(t, types.AgentAnalysis, tasks[1].Type)
	assert.Equal(t, types.AgentSynthesis, tasks[2].Type)
	assert.NotEmpty(t, tasks[0].ID)
}

func TestParseTaskList_DefaultsAndRussianLabels(t *testing.T) {
	text := `1. Подзадача: Собрать данные
   Тип: research
2. Проанализировать данные`

	tasks := parseTaskList(text)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Собрать данные", tasks[0].Description)
	assert.Equal(t, types.AgentResearch, tasks[1].Type, "missing type defaults to research")
	assert.Equal(t, "medium", tasks[1].Priority)
}

func TestParseTaskList_Unparseable(t *testing.T) {
	assert.Empty(t, parseTaskList("I cannot split this query."))
	assert.Empty(t, parseTaskList(""))
}

func TestDecompose_UsesCompleterOutput(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		"1. Subtask: Research the topic\n   Type: research\n   Priority: high",
	}}
	d := NewDecomposer(c, nil)

	tasks := d.Decompose(context.Background(), "complex query")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Research the topic", tasks[0].Description)
}

func TestDecompose_TemplateOnUnparseableOutput(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"no list here"}}
	d := NewDecomposer(c, nil)

	tasks := d.Decompose(context.Background(), "complex query")
	require.Len(t, tasks, 3)
	assert.Equal(t, types.AgentResearch, tasks[0].Type)
	assert.Equal(t, types.AgentAnalysis, tasks[1].Type)
	assert.Equal(t, types.AgentSynthesis, tasks[2].Type)
}

func TestDecompose_TemplateOnCompleterError(t *testing.T) {
	c := &scriptedCompleter{err: errors.New("llm down")}
	d := NewDecomposer(c, nil)

	tasks := d.Decompose(context.Background(), "complex query")
	require.Len(t, tasks, 3)
}
