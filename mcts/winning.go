package mcts

import (
	"fmt"
	"strings"
	"time"

	"github.com/snow-ghost/strategist/core"
)

// BestCompletedLeaf returns the completed-strategy leaf with the highest
// visit count. Visit count, not Q-value: repeated selection reflects the
// search's own confidence and is robust to a single noisy simulation. Ties
// go to the first leaf in tree order. Nil when no strategy completed.
func BestCompletedLeaf(root *Node) *Node {
	var best *Node
	for _, leaf := range CollectLeaves(root) {
		if leaf.CompletedStrategy == nil {
			continue
		}
		if best == nil || leaf.VisitCount > best.VisitCount {
			best = leaf
		}
	}
	return best
}

// BuildWinningPath freezes the run's best trace. The execution result and
// verdict are looked up from the run's per-strategy records; either may be
// missing when the winning strategy failed to execute.
func BuildWinningPath(
	best *Node,
	problem core.Problem,
	cfg Config,
	metrics core.SearchMetrics,
	execution *core.ExecutionResult,
	verdict *core.Verdict,
) *core.WinningPath {
	if best == nil || best.CompletedStrategy == nil {
		return nil
	}
	strategy := best.CompletedStrategy
	changes := make(map[string]string, len(strategy.FileChanges))
	for path, content := range strategy.FileChanges {
		changes[path] = content
	}
	wp := &core.WinningPath{
		ProblemDescription: problem.Description,
		ProblemType:        problem.Type,
		ThoughtSequence:    best.ThoughtSequence(),
		FinalStrategyID:    strategy.ID,
		FinalCodeChanges:   changes,
		FinalQValue:        best.QValue,
		TotalIterations:    metrics.IterationsCompleted,
		TotalNodesExplored: metrics.NodesCreated,
		LLMModel:           cfg.Model,
		Config:             cfg.Snapshot(),
		CreatedAt:          time.Now().UTC(),
	}
	if execution != nil {
		res := *execution
		wp.ExecutionResult = &res
	}
	if verdict != nil {
		wp.ReflectionVerdict = verdictText(*verdict)
	}
	return wp
}

func verdictText(v core.Verdict) string {
	if len(v.Weaknesses) == 0 {
		return fmt.Sprintf("score %.2f", v.TotalScore)
	}
	return fmt.Sprintf("score %.2f; weaknesses: %s", v.TotalScore, strings.Join(v.Weaknesses, "; "))
}
