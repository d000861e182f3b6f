package mcts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/snow-ghost/strategist/core"
)

// lowScoreThreshold is the verdict level below which a scored strategy still
// feeds reflexion.
const lowScoreThreshold = 0.5

// Simulator produces a reward for one freshly expanded node. Nodes at the
// depth horizon generate and run a complete strategy; shallower nodes get a
// hybrid thought score.
type Simulator struct {
	exec      core.Executor
	scorer    core.Scorer
	evaluator *Evaluator
	estimator core.TokenEstimator
	reflexion Reflexion
	cfg       Config
	logger    *zap.Logger
}

// simOutcome carries what the engine needs to account one simulation.
type simOutcome struct {
	reward    float64
	tokens    int
	strategy  *core.Strategy
	execution *core.ExecutionResult
	verdict   *core.Verdict
}

// Simulate dispatches on depth. A strategy-generation failure is fatal, like
// expansion; execution and scoring failures are recoverable and feed
// reflexion instead.
func (s *Simulator) Simulate(ctx context.Context, node *Node, problem core.Problem) (simOutcome, error) {
	if node.Depth >= s.cfg.MaxDepth-1 {
		return s.simulateLeaf(ctx, node, problem)
	}
	return s.simulateIntermediate(ctx, node), nil
}

func (s *Simulator) simulateLeaf(ctx context.Context, node *Node, problem core.Problem) (simOutcome, error) {
	// Sibling failures accumulate on the shared parent, so that is where the
	// strategy call picks up its guidance.
	guidance := s.reflexion.RejectionContext(node.Parent)
	path := node.ThoughtSequence()

	strategy, err := s.exec.GenerateCompleteStrategy(ctx, path, problem, guidance)
	if err != nil {
		return simOutcome{}, fmt.Errorf("generate complete strategy for node %s: %w", node.ID, err)
	}
	node.CompletedStrategy = &strategy
	node.IsTerminal = true

	out := simOutcome{strategy: &strategy}
	out.tokens = s.estimator.Estimate(strings.Join(path, "\n")) + s.estimator.Estimate(guidance) +
		estimateStrategy(s.estimator, strategy)

	result, err := s.exec.ExecuteStrategy(ctx, strategy)
	if err != nil {
		reason := s.reflexion.ExtractFailureReason(node, err.Error())
		s.reflexion.PropagateToParent(node, reason)
		s.logger.Debug("strategy execution failed",
			zap.String("node_id", node.ID),
			zap.String("strategy_id", strategy.ID),
			zap.Error(err))
		return out, nil
	}
	out.execution = &result

	verdict, err := s.scorer.Score(ctx, strategy, result)
	if err != nil {
		reason := s.reflexion.ExtractFailureReason(node, err.Error())
		s.reflexion.PropagateToParent(node, reason)
		s.logger.Debug("strategy scoring failed",
			zap.String("strategy_id", strategy.ID),
			zap.Error(err))
		return out, nil
	}
	out.verdict = &verdict
	out.reward = clamp01(verdict.TotalScore)

	if verdict.TotalScore < lowScoreThreshold {
		s.reflexion.PropagateToParent(node, lowScoreReason(verdict))
	}
	return out, nil
}

func (s *Simulator) simulateIntermediate(ctx context.Context, node *Node) simOutcome {
	score := s.evaluator.Score(ctx, node.ThoughtDiff)
	node.ThoughtScore = score
	node.IsPromising = score >= s.cfg.ThoughtEvalThreshold
	return simOutcome{
		reward: score,
		tokens: s.estimator.Estimate(node.ThoughtDiff),
	}
}

func lowScoreReason(v core.Verdict) string {
	if len(v.Weaknesses) == 0 {
		return fmt.Sprintf("strategy scored %.2f with no specific weaknesses reported", v.TotalScore)
	}
	return fmt.Sprintf("strategy scored %.2f: %s", v.TotalScore, strings.Join(v.Weaknesses, "; "))
}

func estimateStrategy(est core.TokenEstimator, strategy core.Strategy) int {
	n := est.Estimate(strategy.Summary)
	for _, content := range strategy.FileChanges {
		n += est.Estimate(content)
	}
	return n
}
