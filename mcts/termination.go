package mcts

// State is the disposition of a search run. RUNNING transitions to exactly
// one terminal state; terminal states never transition again.
type State string

const (
	StateRunning        State = "RUNNING"
	StateCancelled      State = "CANCELLED"
	StateBudgetExceeded State = "BUDGET_EXCEEDED"
	StateEarlyGiveup    State = "EARLY_GIVEUP"
	StateEarlyStop      State = "EARLY_STOP"
	StateMaxIterations  State = "MAX_ITERATIONS"
)

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool { return s != StateRunning }

// Termination applies the multi-condition stop policy. Conditions are
// evaluated in fixed priority after each completed iteration: cancellation,
// budget, early give-up, early stop. MAX_ITERATIONS is the loop's own
// natural end, not decided here.
type Termination struct {
	cfg Config
}

// NewTermination builds the policy for one run.
func NewTermination(cfg Config) Termination {
	return Termination{cfg: cfg}
}

// Evaluate returns the state after `iteration` completed iterations.
func (t Termination) Evaluate(root *Node, tracker *BudgetTracker, iteration int, cancelled bool) State {
	if cancelled {
		return StateCancelled
	}
	if tracker.Exceeded() {
		return StateBudgetExceeded
	}

	leaves := CollectLeaves(root)
	if t.cfg.EnableEarlyGiveup && iteration >= t.cfg.EarlyGiveupIterations {
		if maxLeafQ(leaves) < t.cfg.EarlyGiveupThreshold {
			return StateEarlyGiveup
		}
	}
	for _, leaf := range leaves {
		if leaf.QValue >= t.cfg.EarlyStopThreshold {
			return StateEarlyStop
		}
	}
	return StateRunning
}

func maxLeafQ(leaves []*Node) float64 {
	best := 0.0
	for _, leaf := range leaves {
		if leaf.QValue > best {
			best = leaf.QValue
		}
	}
	return best
}
