package mcts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/strategist/core"
)

func completedLeaf(parent *Node, thought, strategyID string, visits int) *Node {
	n := NewThought(parent, thought)
	parent.AddChild(n)
	n.VisitCount = visits
	n.IsTerminal = true
	n.CompletedStrategy = &core.Strategy{
		ID:          strategyID,
		Summary:     thought,
		FileChanges: map[string]string{"main.go": "package main"},
	}
	return n
}

func TestBestCompletedLeafMostVisited(t *testing.T) {
	root := NewRoot("p")
	completedLeaf(root, "first", "s1", 2)
	want := completedLeaf(root, "second", "s2", 5)
	completedLeaf(root, "third", "s3", 3)

	require.Same(t, want, BestCompletedLeaf(root))
}

func TestBestCompletedLeafTieBreaksOnTreeOrder(t *testing.T) {
	root := NewRoot("p")
	want := completedLeaf(root, "first", "s1", 4)
	completedLeaf(root, "second", "s2", 4)

	require.Same(t, want, BestCompletedLeaf(root))
}

func TestBestCompletedLeafIgnoresIncomplete(t *testing.T) {
	root := NewRoot("p")

	// Heavily visited intermediate leaf without a strategy must not win.
	busy := NewThought(root, "busy")
	root.AddChild(busy)
	busy.VisitCount = 100

	want := completedLeaf(root, "done", "s1", 1)
	require.Same(t, want, BestCompletedLeaf(root))
}

func TestBestCompletedLeafNilWhenNoneCompleted(t *testing.T) {
	root := NewRoot("p")
	child := NewThought(root, "open")
	root.AddChild(child)

	require.Nil(t, BestCompletedLeaf(root))
}

func TestBuildWinningPathSnapshot(t *testing.T) {
	problem := core.Problem{Description: "fix the parser", Type: "bugfix"}
	root := NewRoot(problem.Description)
	mid := NewThought(root, "Reproduce the failure with a regression test")
	root.AddChild(mid)
	best := completedLeaf(mid, "Patch the tokenizer offset handling", "strat-7", 3)
	best.QValue = 0.82

	cfg := DefaultConfig()
	cfg.Model = "gpt-4o-mini"
	metrics := core.SearchMetrics{IterationsCompleted: 6, NodesCreated: 11}
	execution := &core.ExecutionResult{Success: true, TestsPassed: 4}
	verdict := &core.Verdict{TotalScore: 0.82, Weaknesses: []string{"no docs"}}

	wp := BuildWinningPath(best, problem, cfg, metrics, execution, verdict)
	require.NotNil(t, wp)
	require.Equal(t, "fix the parser", wp.ProblemDescription)
	require.Equal(t, "bugfix", wp.ProblemType)
	require.Equal(t, []string{
		"Reproduce the failure with a regression test",
		"Patch the tokenizer offset handling",
	}, wp.ThoughtSequence)
	require.Equal(t, "strat-7", wp.FinalStrategyID)
	require.Equal(t, 0.82, wp.FinalQValue)
	require.Equal(t, 6, wp.TotalIterations)
	require.Equal(t, 11, wp.TotalNodesExplored)
	require.Equal(t, "gpt-4o-mini", wp.LLMModel)
	require.Equal(t, cfg.ExplorationConstant, wp.Config.ExplorationConstant)
	require.Equal(t, "score 0.82; weaknesses: no docs", wp.ReflectionVerdict)
	require.WithinDuration(t, time.Now().UTC(), wp.CreatedAt, 5*time.Second)

	// The record owns copies, not the live tree's maps.
	require.Equal(t, map[string]string{"main.go": "package main"}, wp.FinalCodeChanges)
	best.CompletedStrategy.FileChanges["main.go"] = "mutated"
	require.Equal(t, "package main", wp.FinalCodeChanges["main.go"])

	require.NotSame(t, execution, wp.ExecutionResult)
	require.Equal(t, *execution, *wp.ExecutionResult)
}

func TestBuildWinningPathWithoutExecution(t *testing.T) {
	root := NewRoot("p")
	best := completedLeaf(root, "only attempt", "s1", 1)

	wp := BuildWinningPath(best, core.Problem{Description: "p"}, DefaultConfig(), core.SearchMetrics{}, nil, nil)
	require.NotNil(t, wp)
	require.Nil(t, wp.ExecutionResult)
	require.Empty(t, wp.ReflectionVerdict)
}

func TestBuildWinningPathNilBest(t *testing.T) {
	require.Nil(t, BuildWinningPath(nil, core.Problem{}, DefaultConfig(), core.SearchMetrics{}, nil, nil))
}
