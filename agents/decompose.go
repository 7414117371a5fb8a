package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/types"
)

// Decomposer splits a complex query into typed subtasks using the
// completer, with a fixed research/analysis/synthesis template as the
// fallback when the completion cannot be parsed.
type Decomposer struct {
	completer llm.Completer
	logger    *zap.Logger
}

// NewDecomposer creates a decomposer.
func NewDecomposer(completer llm.Completer, logger *zap.Logger) *Decomposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{
		completer: completer,
		logger:    logger.With(zap.String("component", "decomposer")),
	}
}

const decompositionPrompt = `Break the following query into logical subtasks.

Query: %s

Answer format, one block per subtask:
1. Subtask: [description]
   Type: [research|analysis|synthesis]
   Priority: [high|medium|low]`

// Decompose produces the subtask plan for a query.
func (d *Decomposer) Decompose(ctx context.Context, query string) []Task {
	if d.completer != nil {
		completion, err := d.completer.Complete(ctx, fmt.Sprintf(decompositionPrompt, query),
			&llm.CompleteOptions{System: "You are a planning agent decomposing queries into subtasks."})
		if err == nil {
			if tasks := parseTaskList(completion.Text); len(tasks) > 0 {
				d.logger.Debug("query decomposed", zap.Int("subtasks", len(tasks)))
				return tasks
			}
			d.logger.Debug("decomposition output unparseable, using template")
		} else {
			d.logger.Warn("decomposition failed, using template", zap.Error(err))
		}
	}
	return defaultPlan()
}

// defaultPlan is the fixed three-stage plan used when decomposition is
// unavailable.
func defaultPlan() []Task {
	return []Task{
		{ID: uuid.NewString(), Description: "Gather information on the topic", Type: types.AgentResearch, Priority: "high"},
		{ID: uuid.NewString(), Description: "Analyse the collected material", Type: types.AgentAnalysis, Priority: "high"},
		{ID: uuid.NewString(), Description: "Form the conclusions", Type: types.AgentSynthesis, Priority: "medium"},
	}
}

var (
	taskLineRE     = regexp.MustCompile(`^\s*\d+\.\s*(?:Subtask|Подзадача)?\s*:?\s*(.+)$`)
	typeLineRE     = regexp.MustCompile(`(?i)^\s*(?:Type|Тип)\s*:\s*\[?(research|analysis|synthesis)\]?`)
	priorityLineRE = regexp.MustCompile(`(?i)^\s*(?:Priority|Приоритет)\s*:\s*\[?(high|medium|low)\]?`)
)

// parseTaskList extracts tasks from a numbered-list completion. Lines that
// do not follow the format are skipped; blocks without a type default to
// research.
func parseTaskList(text string) []Task {
	var tasks []Task
	var current *Task

	flush := func() {
		if current != nil && strings.TrimSpace(current.Description) != "" {
			if current.Type == "" {
				current.Type = types.AgentResearch
			}
			if current.Priority == "" {
				current.Priority = "medium"
			}
			tasks = append(tasks, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if m := taskLineRE.FindStringSubmatch(line); m != nil {
			flush()
			desc := strings.Trim(strings.TrimSpace(m[1]), "[]")
			current = &Task{ID: uuid.NewString(), Description: desc}
			continue
		}
		if current == nil {
			continue
		}
		if m := typeLineRE.FindStringSubmatch(line); m != nil {
			current.Type = types.AgentType(strings.ToLower(m[1]))
			continue
		}
		if m := priorityLineRE.FindStringSubmatch(line); m != nil {
			current.Priority = strings.ToLower(m[1])
		}
	}
	flush()

	return tasks
}
