package core

import "context"

// Executor is the engine's gateway to the language model and the sandbox.
// One adapter per provider; the engine never branches on provider identity.
type Executor interface {
	// GenerateNextThoughts returns up to k candidate next steps for the
	// partial solution described by summary. Guidance carries rejection
	// context from earlier failed siblings and may be empty. Errors are
	// fatal to the run.
	GenerateNextThoughts(ctx context.Context, summary string, problem Problem, guidance string, k int) ([]string, error)

	// GenerateCompleteStrategy turns a root-to-leaf thought path into a
	// runnable strategy. Errors are fatal to the run.
	GenerateCompleteStrategy(ctx context.Context, path []string, problem Problem, guidance string) (Strategy, error)

	// ExecuteStrategy runs the strategy in the sandbox. Errors are
	// recoverable: the engine records a zero reward and keeps searching.
	ExecuteStrategy(ctx context.Context, strategy Strategy) (ExecutionResult, error)

	// EvaluateThought asks a verifier model to grade one thought in [0,1].
	// Errors degrade to a neutral score at the call site.
	EvaluateThought(ctx context.Context, thought string) (float64, error)
}

// Scorer grades an executed strategy against the problem's rubric.
type Scorer interface {
	Score(ctx context.Context, strategy Strategy, result ExecutionResult) (Verdict, error)
}

// ExperienceRepository mirrors winning paths to long-term storage.
// Save is best-effort: the engine logs and swallows failures.
type ExperienceRepository interface {
	Save(ctx context.Context, record WinningPath) error
}

// TraceLog is the append-only flywheel sink for winning paths.
type TraceLog interface {
	Append(ctx context.Context, record WinningPath) error
}

// TokenEstimator approximates token usage for budget accounting. The default
// is a word-count heuristic; adapters backed by a real tokenizer or by
// provider-reported usage substitute freely.
type TokenEstimator interface {
	Estimate(text string) int
}

// StrategyRunner executes one strategy in isolation. Executor adapters that
// do not own a sandbox delegate ExecuteStrategy here.
type StrategyRunner interface {
	Run(ctx context.Context, strategy Strategy) (ExecutionResult, error)
}
