package mcts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/snow-ghost/strategist/core"
	"github.com/snow-ghost/strategist/pkg/tokens"
)

// Engine runs the MCTS loop against a single problem. One Engine is safe to
// reuse across runs; each Search call owns its tree and metrics. The loop
// itself is sequential: selection reads the whole tree, so iterations cannot
// overlap without changing the algorithm.
type Engine struct {
	cfg        Config
	exec       core.Executor
	scorer     core.Scorer
	estimator  core.TokenEstimator
	observer   core.Observer
	trace      core.TraceLog
	experience core.ExperienceRepository
	logger     *zap.Logger
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithObserver installs the lifecycle callback. Defaults to a no-op.
func WithObserver(o core.Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithTraceLog installs the flywheel sink for winning paths.
func WithTraceLog(t core.TraceLog) Option {
	return func(e *Engine) { e.trace = t }
}

// WithExperience installs the best-effort long-term mirror.
func WithExperience(r core.ExperienceRepository) Option {
	return func(e *Engine) { e.experience = r }
}

// WithTokenEstimator replaces the word-count heuristic.
func WithTokenEstimator(est core.TokenEstimator) Option {
	return func(e *Engine) {
		if est != nil {
			e.estimator = est
		}
	}
}

// WithLogger installs the logger for swallowed failures and run summaries.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New validates the configuration and wires the engine.
func New(cfg Config, exec core.Executor, scorer core.Scorer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if exec == nil {
		return nil, errors.New("executor is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	e := &Engine{
		cfg:       cfg,
		exec:      exec,
		scorer:    scorer,
		estimator: tokens.NewHeuristic(),
		observer:  core.NopObserver{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs the loop until a termination condition fires. A fatal executor
// failure (thought or strategy generation) returns the partial result
// alongside the error; every other failure mode degrades and the run
// completes with a best-effort result.
func (e *Engine) Search(ctx context.Context, problem core.Problem) (*Result, error) {
	if strings.TrimSpace(problem.Description) == "" {
		return nil, errors.New("problem description is empty")
	}

	root := NewRoot(problem.Description)
	tracker := NewBudgetTracker(e.cfg)
	termination := NewTermination(e.cfg)
	evaluator := NewEvaluator(e.exec, e.logger)
	expander := &Expander{exec: e.exec, estimator: e.estimator, cfg: e.cfg}
	simulator := &Simulator{
		exec:      e.exec,
		scorer:    e.scorer,
		evaluator: evaluator,
		estimator: e.estimator,
		cfg:       e.cfg,
		logger:    e.logger,
	}

	res := newResult(root)
	res.Metrics.StartTime = time.Now().UTC()
	verdicts := make(map[string]core.Verdict)

	e.emit(core.Event{Kind: core.EventSearchStart})
	e.logger.Info("search started",
		zap.String("problem_type", problem.Type),
		zap.Int("max_iterations", e.cfg.MaxIterations),
		zap.Int("max_depth", e.cfg.MaxDepth))

	for iter := 1; iter <= e.cfg.MaxIterations; iter++ {
		if ctx.Err() != nil {
			res.State = StateCancelled
			break
		}
		e.emit(core.Event{Kind: core.EventIterationStart, Iteration: iter})

		node := Select(root, e.cfg.ExplorationConstant, e.cfg.MaxDepth)
		e.emit(core.Event{Kind: core.EventNodeSelected, Iteration: iter, NodeID: node.ID, Depth: node.Depth})

		// Nodes already at the depth horizon are simulated directly so the
		// tree never grows past MaxDepth.
		simNode := node
		if !node.IsTerminal && node.Depth < e.cfg.MaxDepth {
			children, expTokens, err := expander.Expand(ctx, node, problem)
			if err != nil {
				return e.abort(res, tracker, iter, err)
			}
			tracker.Add(PhaseExpansion, expTokens)
			res.Metrics.NodesCreated += len(children)
			e.emit(core.Event{Kind: core.EventNodesExpanded, Iteration: iter, NodeID: node.ID,
				Children: len(children), Tokens: expTokens})
			simNode = children[0]
		}

		e.emit(core.Event{Kind: core.EventSimulationStart, Iteration: iter, NodeID: simNode.ID, Depth: simNode.Depth})
		var reward float64
		var simTokens int
		if simNode.IsTerminal {
			// Re-selected completed leaf: reinforce with its current mean
			// instead of paying for another generation and execution.
			reward = simNode.QValue
		} else {
			out, err := simulator.Simulate(ctx, simNode, problem)
			if err != nil {
				return e.abort(res, tracker, iter, err)
			}
			reward = out.reward
			simTokens = out.tokens
			tracker.Add(PhaseSimulation, simTokens)
			if out.strategy != nil {
				res.AllStrategies = append(res.AllStrategies, *out.strategy)
				if out.execution != nil {
					res.ExecutedStrategies[out.strategy.ID] = *out.execution
				}
				if out.verdict != nil {
					res.Scores[out.strategy.ID] = out.verdict.TotalScore
					verdicts[out.strategy.ID] = *out.verdict
				}
			}
		}
		e.emit(core.Event{Kind: core.EventSimulationEnd, Iteration: iter, NodeID: simNode.ID,
			Reward: reward, Tokens: simTokens})

		steps := Backpropagate(simNode, reward)
		e.emit(core.Event{Kind: core.EventBackpropagated, Iteration: iter, NodeID: simNode.ID,
			Depth: steps - 1, Reward: reward})
		res.Metrics.IterationsCompleted = iter

		e.emit(core.Event{Kind: core.EventBudgetCheck, Iteration: iter,
			Tokens: tracker.TotalTokens(), CostUSD: tracker.CostUSD()})
		state := termination.Evaluate(root, tracker, iter, ctx.Err() != nil)
		if state.Terminal() {
			res.State = state
			switch state {
			case StateEarlyGiveup:
				e.emit(core.Event{Kind: core.EventEarlyGiveup, Iteration: iter})
			case StateEarlyStop:
				e.emit(core.Event{Kind: core.EventEarlyStop, Iteration: iter})
			}
			break
		}
	}
	if res.State == StateRunning {
		res.State = StateMaxIterations
	}

	e.settle(res, tracker)
	e.conclude(ctx, problem, res, verdicts)

	e.emit(core.Event{Kind: core.EventSearchEnd, Iteration: res.Metrics.IterationsCompleted,
		State: string(res.State), Tokens: res.Metrics.TotalTokensUsed, CostUSD: res.Metrics.TotalCostUSD})
	e.logger.Info("search finished",
		zap.String("state", string(res.State)),
		zap.Int("iterations", res.Metrics.IterationsCompleted),
		zap.Int("nodes", res.Metrics.NodesCreated),
		zap.Int("tokens", res.Metrics.TotalTokensUsed),
		zap.Float64("cost_usd", res.Metrics.TotalCostUSD),
		zap.String("best_strategy", res.BestStrategyID))
	return res, nil
}

// abort finalizes the partial result and surfaces a fatal error.
func (e *Engine) abort(res *Result, tracker *BudgetTracker, iter int, err error) (*Result, error) {
	e.settle(res, tracker)
	wrapped := fmt.Errorf("iteration %d: %w", iter, err)
	e.emit(core.Event{Kind: core.EventSearchEnd, Iteration: iter, State: string(res.State), Err: wrapped})
	e.logger.Error("search aborted", zap.Int("iteration", iter), zap.Error(err))
	return res, wrapped
}

// settle closes out the metrics and counters.
func (e *Engine) settle(res *Result, tracker *BudgetTracker) {
	res.Metrics.TotalTokensUsed = tracker.TotalTokens()
	res.Metrics.TotalCostUSD = tracker.CostUSD()
	res.Metrics.EndTime = time.Now().UTC()
	res.tallyCounts()
}

// conclude extracts the winning path, if any, and persists it: exactly one
// flywheel append, one best-effort experience mirror. Persistence failures
// are logged and swallowed.
func (e *Engine) conclude(ctx context.Context, problem core.Problem, res *Result, verdicts map[string]core.Verdict) {
	best := BestCompletedLeaf(res.Root)
	if best == nil {
		return
	}
	res.BestStrategyID = best.CompletedStrategy.ID
	if score, ok := res.Scores[res.BestStrategyID]; ok {
		res.BestScore = score
	} else {
		res.BestScore = best.QValue
	}

	var execution *core.ExecutionResult
	if r, ok := res.ExecutedStrategies[res.BestStrategyID]; ok {
		execution = &r
	}
	var verdict *core.Verdict
	if v, ok := verdicts[res.BestStrategyID]; ok {
		verdict = &v
	}
	res.WinningPath = BuildWinningPath(best, problem, e.cfg, res.Metrics, execution, verdict)
	if res.WinningPath == nil {
		return
	}
	if e.trace != nil {
		if err := e.trace.Append(ctx, *res.WinningPath); err != nil {
			e.logger.Warn("flywheel append failed", zap.Error(err))
		}
	}
	if e.experience != nil {
		if err := e.experience.Save(ctx, *res.WinningPath); err != nil {
			e.logger.Warn("experience mirror save failed", zap.Error(err))
		}
	}
}

// emit delivers one event to the observer. A panicking observer is logged
// and ignored so observability can never break the search.
func (e *Engine) emit(ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("observer panic",
				zap.String("event", string(ev.Kind)),
				zap.Any("panic", r))
		}
	}()
	e.observer.OnEvent(ev)
}
