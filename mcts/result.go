package mcts

import "github.com/snow-ghost/strategist/core"

// Result bundles everything one search run produced. On a fatal failure the
// engine still returns it alongside the error: earlier iterations keep their
// partial tree and metrics.
type Result struct {
	Root  *Node
	State State

	AllStrategies      []core.Strategy
	ExecutedStrategies map[string]core.ExecutionResult
	Scores             map[string]float64

	BestStrategyID string
	BestScore      float64

	TotalGenerated int
	TotalExecuted  int
	TotalPassed    int

	Metrics     core.SearchMetrics
	WinningPath *core.WinningPath
}

func newResult(root *Node) *Result {
	return &Result{
		Root:               root,
		State:              StateRunning,
		ExecutedStrategies: make(map[string]core.ExecutionResult),
		Scores:             make(map[string]float64),
	}
}

// tallyCounts refreshes the generation/execution/pass counters from the
// per-strategy records.
func (r *Result) tallyCounts() {
	r.TotalGenerated = len(r.AllStrategies)
	r.TotalExecuted = len(r.ExecutedStrategies)
	passed := 0
	for _, res := range r.ExecutedStrategies {
		if res.Success {
			passed++
		}
	}
	r.TotalPassed = passed
}
