package mcts

import (
	"math"

	"github.com/snow-ghost/strategist/core"
)

// Token accounting phases.
const (
	PhaseExpansion  = "expansion"
	PhaseSimulation = "simulation"
)

// BudgetTracker accumulates estimated token usage by phase and converts the
// total to cost. It is the circuit breaker's input: checked once after each
// complete iteration, never mid-flight.
type BudgetTracker struct {
	cfg    Config
	phases map[string]int
	total  int
}

// NewBudgetTracker returns an empty tracker for one run.
func NewBudgetTracker(cfg Config) *BudgetTracker {
	return &BudgetTracker{cfg: cfg, phases: make(map[string]int)}
}

// Add records estimated token usage for one phase.
func (b *BudgetTracker) Add(phase string, tokens int) {
	if tokens <= 0 {
		return
	}
	b.phases[phase] += tokens
	b.total += tokens
}

// TotalTokens returns the accumulated usage across phases.
func (b *BudgetTracker) TotalTokens() int { return b.total }

// PhaseTokens returns the usage attributed to one phase.
func (b *BudgetTracker) PhaseTokens(phase string) int { return b.phases[phase] }

// CostUSD converts accumulated tokens to dollars at the configured per-1k
// rate, rounded to 6 decimals for stable reporting.
func (b *BudgetTracker) CostUSD() float64 {
	cost := float64(b.total) / 1000 * b.cfg.CostPer1KTokens
	return math.Round(cost*1e6) / 1e6
}

// Exceeded reports whether either budget ceiling has been crossed.
func (b *BudgetTracker) Exceeded() bool {
	m := core.SearchMetrics{TotalTokensUsed: b.total, TotalCostUSD: b.CostUSD()}
	return m.ExceedsBudget(b.cfg.MaxTotalTokens, b.cfg.MaxCostUSD)
}
