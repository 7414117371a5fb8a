// Package agents implements the agentic pipeline: query decomposition,
// specialised agents and the orchestrator that runs them.
package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/retrieval"
	"github.com/hybridrag/hybridrag/types"
)

// Task is one decomposed subtask.
type Task struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Type        types.AgentType `json:"type"`
	Priority    string          `json:"priority"`
}

// Result is an agent outcome plus the orchestration flags that never leave
// this package.
type Result struct {
	types.AgentResult
	NeedsRefinement bool
}

// Agent executes one task. Prior results are passed as accumulated context.
type Agent interface {
	Type() types.AgentType
	Execute(ctx context.Context, task Task, prior []Result) (*Result, error)
}

// baseAgent carries the shared plumbing of all roles.
type baseAgent struct {
	agentType  types.AgentType
	completer  llm.Completer
	confidence float64
	logger     *zap.Logger
}

func (a *baseAgent) Type() types.AgentType { return a.agentType }

// run sends the prompt and wraps the completion into a Result.
func (a *baseAgent) run(ctx context.Context, system, prompt string) (*Result, error) {
	start := time.Now()
	completion, err := a.completer.Complete(ctx, prompt, &llm.CompleteOptions{System: system})
	if err != nil {
		return nil, types.NewError(types.ErrPipelineFailed,
			fmt.Sprintf("%s agent failed", a.agentType)).WithCause(err)
	}

	return &Result{
		AgentResult: types.AgentResult{
			AgentType:       a.agentType,
			AgentID:         uuid.NewString(),
			Result:          completion.Text,
			Confidence:      a.confidence,
			ExecutionTimeMS: time.Since(start).Milliseconds(),
			TokensUsed:      completion.Usage.TotalTokens,
			CostUSD:         completion.Usage.CostUSD,
		},
	}, nil
}

// priorContext renders earlier results into a prompt block.
func priorContext(prior []Result) string {
	if len(prior) == 0 {
		return "no prior findings"
	}
	var b strings.Builder
	for i, r := range prior {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, r.AgentType, r.Result)
	}
	return b.String()
}

// ResearchAgent gathers source material. With a retriever and embedder it
// grounds its findings in retrieved documents.
type ResearchAgent struct {
	baseAgent
	retriever retrieval.Retriever
	embedder  llm.Embedder
	topK      int
}

// NewResearchAgent creates the research role. Retriever and embedder are
// optional; without them the agent works from the model alone.
func NewResearchAgent(completer llm.Completer, retriever retrieval.Retriever, embedder llm.Embedder, logger *zap.Logger) *ResearchAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResearchAgent{
		baseAgent: baseAgent{
			agentType:  types.AgentResearch,
			completer:  completer,
			confidence: 0.8,
			logger:     logger.With(zap.String("agent", "research")),
		},
		retriever: retriever,
		embedder:  embedder,
		topK:      5,
	}
}

// Execute retrieves documents for the task and summarises the findings.
func (a *ResearchAgent) Execute(ctx context.Context, task Task, prior []Result) (*Result, error) {
	var docs []types.Document
	if a.retriever != nil && a.embedder != nil {
		embedding, err := a.embedder.Embed(ctx, task.Description)
		if err != nil {
			a.logger.Warn("embedding failed, researching without retrieval", zap.Error(err))
		} else if docs, err = a.retriever.Retrieve(ctx, embedding, a.topK); err != nil {
			a.logger.Warn("retrieval failed, researching without documents", zap.Error(err))
			docs = nil
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task.Description)
	if len(docs) > 0 {
		b.WriteString("Retrieved documents:\n")
		for i, doc := range docs {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, doc.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Prior findings:\n%s\n", priorContext(prior))
	b.WriteString("Collect the relevant facts for this task. Cite the documents you used.")

	result, err := a.run(ctx, "You are a research agent gathering source material.", b.String())
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		result.Sources = append(result.Sources, doc.DocID)
	}
	return result, nil
}

// AnalysisAgent reasons over gathered material.
type AnalysisAgent struct {
	baseAgent
}

// NewAnalysisAgent creates the analysis role.
func NewAnalysisAgent(completer llm.Completer, logger *zap.Logger) *AnalysisAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisAgent{
		baseAgent: baseAgent{
			agentType:  types.AgentAnalysis,
			completer:  completer,
			confidence: 0.75,
			logger:     logger.With(zap.String("agent", "analysis")),
		},
	}
}

// Execute analyses the accumulated findings.
func (a *AnalysisAgent) Execute(ctx context.Context, task Task, prior []Result) (*Result, error) {
	prompt := fmt.Sprintf(
		"Task: %s\n\nFindings so far:\n%s\nAnalyse the findings: identify patterns, contradictions and gaps.",
		task.Description, priorContext(prior))
	return a.run(ctx, "You are an analysis agent reasoning over collected material.", prompt)
}

// SynthesisAgent merges results into a final answer.
type SynthesisAgent struct {
	baseAgent
}

// NewSynthesisAgent creates the synthesis role.
func NewSynthesisAgent(completer llm.Completer, logger *zap.Logger) *SynthesisAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SynthesisAgent{
		baseAgent: baseAgent{
			agentType:  types.AgentSynthesis,
			confidence: 0.85,
			completer:  completer,
			logger:     logger.With(zap.String("agent", "synthesis")),
		},
	}
}

// Execute composes a coherent answer from the accumulated results.
func (a *SynthesisAgent) Execute(ctx context.Context, task Task, prior []Result) (*Result, error) {
	prompt := fmt.Sprintf(
		"Task: %s\n\nResults to merge:\n%s\nWrite one coherent, complete answer based on these results.",
		task.Description, priorContext(prior))
	return a.run(ctx, "You are a synthesis agent writing the final answer.", prompt)
}

// VerificationAgent checks a draft answer for unsupported claims.
type VerificationAgent struct {
	baseAgent
}

// NewVerificationAgent creates the verification role.
func NewVerificationAgent(completer llm.Completer, logger *zap.Logger) *VerificationAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationAgent{
		baseAgent: baseAgent{
			agentType:  types.AgentVerification,
			completer:  completer,
			confidence: 0.9,
			logger:     logger.With(zap.String("agent", "verification")),
		},
	}
}

// Execute reviews the latest result against the findings that produced it.
func (a *VerificationAgent) Execute(ctx context.Context, task Task, prior []Result) (*Result, error) {
	prompt := fmt.Sprintf(
		"Task: %s\n\nMaterial:\n%s\nCheck the final result against the material. Point out unsupported claims, then restate the corrected answer.",
		task.Description, priorContext(prior))
	return a.run(ctx, "You are a verification agent fact-checking a draft answer.", prompt)
}
