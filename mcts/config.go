package mcts

import (
	"fmt"

	"github.com/snow-ghost/strategist/core"
)

// Config controls one search run. Zero values are not usable; start from
// DefaultConfig and override.
type Config struct {
	MaxIterations          int     `json:"max_iterations" yaml:"max_iterations"`
	MaxDepth               int     `json:"max_depth" yaml:"max_depth"`
	ExplorationConstant    float64 `json:"exploration_constant" yaml:"exploration_constant"`
	StrategiesPerExpansion int     `json:"strategies_per_expansion" yaml:"strategies_per_expansion"`
	ThoughtEvalThreshold   float64 `json:"thought_eval_threshold" yaml:"thought_eval_threshold"`
	EarlyStopThreshold     float64 `json:"early_stop_threshold" yaml:"early_stop_threshold"`
	EnableEarlyGiveup      bool    `json:"enable_early_giveup" yaml:"enable_early_giveup"`
	EarlyGiveupIterations  int     `json:"early_giveup_iterations" yaml:"early_giveup_iterations"`
	EarlyGiveupThreshold   float64 `json:"early_giveup_threshold" yaml:"early_giveup_threshold"`
	MaxTotalTokens         int     `json:"max_total_tokens" yaml:"max_total_tokens"`
	MaxCostUSD             float64 `json:"max_cost_usd" yaml:"max_cost_usd"`
	CostPer1KTokens        float64 `json:"cost_per_1k_tokens" yaml:"cost_per_1k_tokens"`
	Seed                   int64   `json:"seed,omitempty" yaml:"seed"`

	// SummaryMaxChars bounds the node summary handed to thought generation.
	SummaryMaxChars int `json:"summary_max_chars" yaml:"summary_max_chars"`
	// Model is recorded in winning-path traces; the executor adapter owns
	// the actual model selection.
	Model string `json:"model,omitempty" yaml:"model"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxIterations:          10,
		MaxDepth:               4,
		ExplorationConstant:    1.414,
		StrategiesPerExpansion: 3,
		ThoughtEvalThreshold:   0.6,
		EarlyStopThreshold:     0.9,
		EnableEarlyGiveup:      true,
		EarlyGiveupIterations:  5,
		EarlyGiveupThreshold:   0.2,
		MaxTotalTokens:         100000,
		MaxCostUSD:             5.0,
		CostPer1KTokens:        0.01,
		SummaryMaxChars:        1200,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.StrategiesPerExpansion <= 0 {
		return fmt.Errorf("strategies_per_expansion must be positive, got %d", c.StrategiesPerExpansion)
	}
	if c.ExplorationConstant < 0 {
		return fmt.Errorf("exploration_constant must be non-negative, got %v", c.ExplorationConstant)
	}
	for name, v := range map[string]float64{
		"thought_eval_threshold": c.ThoughtEvalThreshold,
		"early_stop_threshold":   c.EarlyStopThreshold,
		"early_giveup_threshold": c.EarlyGiveupThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	if c.EnableEarlyGiveup && c.EarlyGiveupIterations <= 0 {
		return fmt.Errorf("early_giveup_iterations must be positive when early giveup is enabled, got %d", c.EarlyGiveupIterations)
	}
	if c.CostPer1KTokens < 0 {
		return fmt.Errorf("cost_per_1k_tokens must be non-negative, got %v", c.CostPer1KTokens)
	}
	if c.MaxTotalTokens < 0 || c.MaxCostUSD < 0 {
		return fmt.Errorf("budget ceilings must be non-negative")
	}
	return nil
}

// Snapshot freezes the fields recorded in a WinningPath.
func (c Config) Snapshot() core.ConfigSnapshot {
	return core.ConfigSnapshot{
		MaxIterations:          c.MaxIterations,
		MaxDepth:               c.MaxDepth,
		ExplorationConstant:    c.ExplorationConstant,
		StrategiesPerExpansion: c.StrategiesPerExpansion,
		ThoughtEvalThreshold:   c.ThoughtEvalThreshold,
		EarlyStopThreshold:     c.EarlyStopThreshold,
		EnableEarlyGiveup:      c.EnableEarlyGiveup,
		EarlyGiveupIterations:  c.EarlyGiveupIterations,
		EarlyGiveupThreshold:   c.EarlyGiveupThreshold,
		MaxTotalTokens:         c.MaxTotalTokens,
		MaxCostUSD:             c.MaxCostUSD,
		CostPer1KTokens:        c.CostPer1KTokens,
		Seed:                   c.Seed,
	}
}
