package core

import "time"

// Problem describes one coding task submitted to the search engine.
type Problem struct {
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
	Hints       string `json:"hints,omitempty"`
}

// Strategy is a fully generated candidate solution. FileChanges maps a
// repository-relative path to the complete new content of that file.
type Strategy struct {
	ID          string            `json:"id"`
	Summary     string            `json:"summary,omitempty"`
	FileChanges map[string]string `json:"file_changes"`
}

// ExecutionResult captures one sandboxed run of a strategy.
type ExecutionResult struct {
	Success     bool   `json:"success"`
	Output      string `json:"output,omitempty"`
	ErrorText   string `json:"error_text,omitempty"`
	TestsPassed int    `json:"tests_passed"`
	TestsFailed int    `json:"tests_failed"`
	DurationMS  int64  `json:"duration_ms"`
}

// Verdict is the scorer's judgement of an executed strategy.
type Verdict struct {
	TotalScore float64  `json:"total_score"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

// SearchMetrics accumulates run-wide counters. It is owned by the engine and
// attached to the result; nothing outside the search goroutine mutates it.
type SearchMetrics struct {
	IterationsCompleted int       `json:"iterations_completed"`
	NodesCreated        int       `json:"nodes_created"`
	TotalTokensUsed     int       `json:"total_tokens_used"`
	TotalCostUSD        float64   `json:"total_cost_usd"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
}

// ExceedsBudget reports whether accumulated usage crossed either ceiling.
// A ceiling of zero or less means unlimited.
func (m SearchMetrics) ExceedsBudget(maxTokens int, maxCostUSD float64) bool {
	if maxTokens > 0 && m.TotalTokensUsed >= maxTokens {
		return true
	}
	if maxCostUSD > 0 && m.TotalCostUSD >= maxCostUSD {
		return true
	}
	return false
}

// ConfigSnapshot is the frozen copy of the engine configuration embedded in
// a WinningPath record.
type ConfigSnapshot struct {
	MaxIterations          int     `json:"max_iterations"`
	MaxDepth               int     `json:"max_depth"`
	ExplorationConstant    float64 `json:"exploration_constant"`
	StrategiesPerExpansion int     `json:"strategies_per_expansion"`
	ThoughtEvalThreshold   float64 `json:"thought_eval_threshold"`
	EarlyStopThreshold     float64 `json:"early_stop_threshold"`
	EnableEarlyGiveup      bool    `json:"enable_early_giveup"`
	EarlyGiveupIterations  int     `json:"early_giveup_iterations"`
	EarlyGiveupThreshold   float64 `json:"early_giveup_threshold"`
	MaxTotalTokens         int     `json:"max_total_tokens"`
	MaxCostUSD             float64 `json:"max_cost_usd"`
	CostPer1KTokens        float64 `json:"cost_per_1k_tokens"`
	Seed                   int64   `json:"seed,omitempty"`
}

// WinningPath is the immutable trace of the best strategy found by one run.
// It is created at most once per successful run, appended to the flywheel
// log, and optionally mirrored to an experience store.
type WinningPath struct {
	ProblemDescription string            `json:"problem_description"`
	ProblemType        string            `json:"problem_type,omitempty"`
	ThoughtSequence    []string          `json:"thought_sequence"`
	FinalStrategyID    string            `json:"final_strategy_id"`
	FinalCodeChanges   map[string]string `json:"final_code_changes,omitempty"`
	FinalQValue        float64           `json:"final_q_value"`
	TotalIterations    int               `json:"total_iterations"`
	TotalNodesExplored int               `json:"total_nodes_explored"`
	ExecutionResult    *ExecutionResult  `json:"execution_result,omitempty"`
	ReflectionVerdict  string            `json:"reflection_verdict,omitempty"`
	LLMModel           string            `json:"llm_model,omitempty"`
	Config             ConfigSnapshot    `json:"config"`
	CreatedAt          time.Time         `json:"created_at"`
}
