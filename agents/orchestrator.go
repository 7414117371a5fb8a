package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/metrics"
	"github.com/hybridrag/hybridrag/types"
)

// ExecutionMode controls how subtasks are scheduled.
type ExecutionMode string

const (
	ModeSequential ExecutionMode = "sequential" // strict order, full context accumulation
	ModeParallel   ExecutionMode = "parallel"   // bounded fan-out, no shared context
	ModeAdaptive   ExecutionMode = "adaptive"   // research fans out, the rest is sequential
)

// Config tunes the orchestrator.
type Config struct {
	// MaxIterations is the total refinement budget per run.
	MaxIterations int
	// ConfidenceThreshold marks results below it for refinement and stops
	// refinement once the synthesis exceeds it.
	ConfidenceThreshold float64
	// EnableSelfReflection runs the verification agent over the synthesis.
	EnableSelfReflection bool
	// Mode is the scheduling mode.
	Mode ExecutionMode
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       5,
		ConfidenceThreshold: 0.8,
		Mode:                ModeAdaptive,
	}
}

// Outcome is the aggregated result of one agentic run.
type Outcome struct {
	Answer       string
	Confidence   float64
	AgentResults []types.AgentResult
	AgentsUsed   []types.AgentType
	Steps        []types.PathStep
	Reasoning    []string
	TokensUsed   int
	CostUSD      float64
}

// Orchestrator decomposes a query, dispatches subtasks to role agents and
// synthesizes the final answer.
type Orchestrator struct {
	cfg        Config
	decomposer *Decomposer
	agents     map[types.AgentType]Agent
	completer  llm.Completer
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given role agents.
func NewOrchestrator(cfg Config, decomposer *Decomposer, roles []Agent, completer llm.Completer, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAdaptive
	}

	agents := make(map[types.AgentType]Agent, len(roles))
	for _, a := range roles {
		agents[a.Type()] = a
	}

	return &Orchestrator{
		cfg:        cfg,
		decomposer: decomposer,
		agents:     agents,
		completer:  completer,
		collector:  collector,
		logger:     logger.With(zap.String("component", "orchestrator")),
	}
}

// Run executes the full agentic flow for a query.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Outcome, error) {
	tasks := o.decomposer.Decompose(ctx, query)
	o.logger.Info("query decomposed",
		zap.Int("subtasks", len(tasks)),
		zap.String("mode", string(o.cfg.Mode)))

	outcome := &Outcome{
		Reasoning: []string{fmt.Sprintf("decomposed query into %d subtasks", len(tasks))},
	}

	var results []Result
	var err error
	switch o.cfg.Mode {
	case ModeParallel:
		results, err = o.runParallel(ctx, tasks, nil)
	case ModeSequential:
		results, err = o.runSequential(ctx, tasks, nil)
	default:
		results, err = o.runAdaptive(ctx, tasks)
	}
	if err != nil {
		return nil, err
	}

	results = o.refine(ctx, tasks, results, outcome)

	// Confidence reflects the subtasks alone. Degraded subtasks report
	// zero and pull the mean down.
	outcome.Confidence = meanConfidence(results)

	final, err := o.synthesize(ctx, query, results)
	if err != nil {
		return nil, err
	}
	results = append(results, *final)

	if o.cfg.EnableSelfReflection {
		if verified := o.verify(ctx, query, results); verified != nil {
			results = append(results, *verified)
			final = verified
			outcome.Reasoning = append(outcome.Reasoning, "verification pass applied")
		}
	}

	outcome.Answer = final.Result
	for _, r := range results {
		outcome.AgentResults = append(outcome.AgentResults, r.AgentResult)
		outcome.TokensUsed += r.TokensUsed
		outcome.CostUSD += r.CostUSD
		outcome.Steps = append(outcome.Steps, types.PathStep{
			Agent:  string(r.AgentType),
			Action: "execute",
			Result: truncate(r.Result, 120),
		})
	}
	outcome.AgentsUsed = distinctTypes(results)

	return outcome, nil
}

// runSequential executes tasks in order, accumulating context. A failed
// subtask degrades to an empty zero-confidence result instead of killing
// the run.
func (o *Orchestrator) runSequential(ctx context.Context, tasks []Task, prior []Result) ([]Result, error) {
	results := append([]Result(nil), prior...)
	for _, task := range tasks {
		result, err := o.execute(ctx, task, results)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			result = o.degrade(task, err)
		}
		results = append(results, *result)
	}
	return results[len(prior):], nil
}

// runParallel fans tasks out with concurrency bounded by the number of
// distinct roles involved. Tasks see only the prior context, not each
// other's output.
func (o *Orchestrator) runParallel(ctx context.Context, tasks []Task, prior []Result) ([]Result, error) {
	distinct := make(map[types.AgentType]struct{})
	for _, t := range tasks {
		distinct[t.Type] = struct{}{}
	}
	sem := semaphore.NewWeighted(int64(len(distinct)))

	results := make([]Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			result, err := o.execute(gctx, task, prior)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				result = o.degrade(task, err)
			}
			mu.Lock()
			results[i] = *result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runAdaptive fans out the leading research tasks, then runs the remaining
// tasks sequentially over the combined findings.
func (o *Orchestrator) runAdaptive(ctx context.Context, tasks []Task) ([]Result, error) {
	split := 0
	for split < len(tasks) && tasks[split].Type == types.AgentResearch {
		split++
	}

	var results []Result
	if split > 0 {
		research, err := o.runParallel(ctx, tasks[:split], nil)
		if err != nil {
			return nil, err
		}
		results = research
	}

	rest, err := o.runSequential(ctx, tasks[split:], results)
	if err != nil {
		return nil, err
	}
	return append(results, rest...), nil
}

// execute dispatches one task to its role agent.
func (o *Orchestrator) execute(ctx context.Context, task Task, prior []Result) (*Result, error) {
	agent, ok := o.agents[task.Type]
	if !ok {
		return nil, types.NewError(types.ErrPipelineFailed,
			fmt.Sprintf("no agent registered for type %s", task.Type))
	}

	start := time.Now()
	result, err := agent.Execute(ctx, task, prior)
	if o.collector != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.collector.RecordAgentExecution(string(task.Type), status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	result.NeedsRefinement = result.Confidence < o.cfg.ConfidenceThreshold
	return result, nil
}

// degrade stands in for a failed subtask: empty result, zero confidence.
// The synthesis works with whatever the surviving subtasks produced.
func (o *Orchestrator) degrade(task Task, err error) *Result {
	o.logger.Warn("subtask agent failed, continuing without its result",
		zap.String("task", task.Description),
		zap.String("type", string(task.Type)),
		zap.Error(err))
	return &Result{AgentResult: types.AgentResult{AgentType: task.Type, Confidence: 0}}
}

// refine reruns low-confidence results through their agents with the
// refinement prompt, bounded by the iteration budget.
func (o *Orchestrator) refine(ctx context.Context, tasks []Task, results []Result, outcome *Outcome) []Result {
	budget := o.cfg.MaxIterations
	for i := range results {
		if budget == 0 {
			break
		}
		if !results[i].NeedsRefinement || i >= len(tasks) {
			continue
		}

		refined, err := o.refineOne(ctx, tasks[i], results[i])
		if err != nil {
			o.logger.Warn("refinement failed, keeping original result",
				zap.String("task", tasks[i].Description), zap.Error(err))
			continue
		}
		results[i] = *refined
		budget--
		outcome.Reasoning = append(outcome.Reasoning,
			fmt.Sprintf("refined %s result", tasks[i].Type))
	}
	return results
}

func (o *Orchestrator) refineOne(ctx context.Context, task Task, result Result) (*Result, error) {
	prompt := fmt.Sprintf(
		"Refine and improve the following result.\n\nTask: %s\nOriginal result: %s\n\nAdd missing detail, check the facts and improve the structure.",
		task.Description, result.Result)

	completion, err := o.completer.Complete(ctx, prompt,
		&llm.CompleteOptions{System: "You are improving a draft result."})
	if err != nil {
		return nil, err
	}

	refined := result
	refined.Result = completion.Text
	refined.Confidence = 0.9
	refined.NeedsRefinement = false
	refined.TokensUsed += completion.Usage.TotalTokens
	refined.CostUSD += completion.Usage.CostUSD
	return &refined, nil
}

// synthesize merges all results into the final answer.
func (o *Orchestrator) synthesize(ctx context.Context, query string, results []Result) (*Result, error) {
	agent, ok := o.agents[types.AgentSynthesis]
	if !ok {
		return nil, types.NewError(types.ErrPipelineFailed, "no synthesis agent registered")
	}
	task := Task{
		Description: fmt.Sprintf("Answer the original query: %s", query),
		Type:        types.AgentSynthesis,
		Priority:    "high",
	}
	return agent.Execute(ctx, task, results)
}

// verify runs the verification agent over the results. Failure is logged
// and ignored so reflection never breaks a run.
func (o *Orchestrator) verify(ctx context.Context, query string, results []Result) *Result {
	agent, ok := o.agents[types.AgentVerification]
	if !ok {
		return nil
	}
	task := Task{
		Description: fmt.Sprintf("Verify the answer to: %s", query),
		Type:        types.AgentVerification,
		Priority:    "high",
	}
	verified, err := agent.Execute(ctx, task, results)
	if err != nil {
		o.logger.Warn("verification failed, keeping unverified answer", zap.Error(err))
		return nil
	}
	return verified
}

// meanConfidence is the arithmetic mean over all subtask confidences,
// zeros included. 0.75 stands in when there are no subtasks at all.
func meanConfidence(results []Result) float64 {
	if len(results) == 0 {
		return 0.75
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}

func distinctTypes(results []Result) []types.AgentType {
	seen := make(map[types.AgentType]struct{})
	var out []types.AgentType
	for _, r := range results {
		if _, ok := seen[r.AgentType]; !ok {
			seen[r.AgentType] = struct{}{}
			out = append(out, r.AgentType)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
