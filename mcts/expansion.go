package mcts

import (
	"context"
	"fmt"

	"github.com/snow-ghost/strategist/core"
)

// Expander grows the tree by one batch of sibling thoughts. Expansion
// failures are fatal to the run: there is no defined partial-iteration
// recovery, callers retry the whole search.
type Expander struct {
	exec      core.Executor
	estimator core.TokenEstimator
	reflexion Reflexion
	cfg       Config
}

// Expand asks the executor for up to k next thoughts under node, attaches
// one child per thought, and returns the created children in order plus the
// estimated token usage. The engine simulates the first child this
// iteration; siblings are reached by later selections.
func (x *Expander) Expand(ctx context.Context, node *Node, problem core.Problem) ([]*Node, int, error) {
	guidance := x.reflexion.RejectionContext(node)
	summary := node.Summary(x.cfg.SummaryMaxChars)

	thoughts, err := x.exec.GenerateNextThoughts(ctx, summary, problem, guidance, x.cfg.StrategiesPerExpansion)
	if err != nil {
		return nil, 0, fmt.Errorf("generate next thoughts for node %s: %w", node.ID, err)
	}
	if len(thoughts) == 0 {
		return nil, 0, fmt.Errorf("generate next thoughts for node %s: executor returned no thoughts", node.ID)
	}
	if len(thoughts) > x.cfg.StrategiesPerExpansion {
		thoughts = thoughts[:x.cfg.StrategiesPerExpansion]
	}

	tokens := x.estimator.Estimate(summary) + x.estimator.Estimate(guidance)
	children := make([]*Node, 0, len(thoughts))
	for _, thought := range thoughts {
		child := NewThought(node, thought)
		node.AddChild(child)
		children = append(children, child)
		tokens += x.estimator.Estimate(thought)
	}
	return children, tokens, nil
}
