// Package script provides a deterministic Executor for offline demos and
// tests. It fabricates thoughts, strategies, and execution results from the
// input text alone, so the full search loop can run without a model or a
// sandbox.
package script

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/snow-ghost/strategist/core"
)

// thoughtTemplates rotate per expansion slot. Each commits to one concrete
// action and carries a sequencing word, so scripted thoughts read like real
// candidate steps rather than filler.
var thoughtTemplates = []string{
	"write a failing test that reproduces the issue first, then implement the smallest fix",
	"refactor the affected path to isolate the change, then add a regression test",
	"implement input validation at the boundary and test the rejected cases next",
	"fix the reported failure first and then check the surrounding edge cases",
	"extract the shared logic, update both call sites and validate the behavior",
}

// failureScripts rotate per failing execution so rejection handling sees
// varied error text.
var failureScripts = []string{
	"SyntaxError: invalid syntax on line 12",
	"runtime error: index out of range [4] with length 4",
	"--- FAIL: TestApply (0.02s)\n    want 3, got 0",
	"compile error: undefined symbol applyPatch",
}

// Executor implements core.Executor with scripted output. Every method is a
// pure function of its inputs, so repeated runs over the same problem produce
// the same tree.
type Executor struct {
	failEvery int
}

// Option configures a scripted Executor.
type Option func(*Executor)

// WithFailEvery makes roughly one in n distinct strategies fail execution,
// selected by a stable hash of the strategy id. Zero disables scripted
// failures. The default is 3, which exercises the rejection path in demos.
func WithFailEvery(n int) Option {
	return func(e *Executor) {
		e.failEvery = n
	}
}

// New creates a scripted Executor.
func New(opts ...Option) *Executor {
	e := &Executor{failEvery: 3}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateNextThoughts returns k scripted thoughts. The template rotation is
// seeded by the summary, and non-empty guidance is folded into the text so a
// retried branch diverges from the rejected one.
func (e *Executor) GenerateNextThoughts(ctx context.Context, summary string, problem core.Problem, guidance string, k int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := hash32(summary)
	thoughts := make([]string, 0, k)
	for i := 0; i < k; i++ {
		text := thoughtTemplates[(seed+uint32(i))%uint32(len(thoughtTemplates))]
		if guidance != "" {
			text += ", avoiding the earlier failure"
		}
		thoughts = append(thoughts, text)
	}
	return thoughts, nil
}

// GenerateCompleteStrategy builds a strategy whose id is a stable hash of the
// thought path and guidance, with a single synthetic file change.
func (e *Executor) GenerateCompleteStrategy(ctx context.Context, path []string, problem core.Problem, guidance string) (core.Strategy, error) {
	if err := ctx.Err(); err != nil {
		return core.Strategy{}, err
	}
	summary := problem.Description
	if len(path) > 0 {
		summary = path[len(path)-1]
	}
	id := fmt.Sprintf("script-%08x", hash32(strings.Join(path, "\n")+guidance))
	content := fmt.Sprintf("package solution\n\n// %s\nfunc Apply() string {\n\treturn %q\n}\n", summary, id)
	return core.Strategy{
		ID:          id,
		Summary:     summary,
		FileChanges: map[string]string{"solution.go": content},
	}, nil
}

// ExecuteStrategy fabricates a run outcome from the strategy id. Strategies
// whose id hash lands on the failure slot report a scripted error; everything
// else passes a small test suite.
func (e *Executor) ExecuteStrategy(ctx context.Context, strategy core.Strategy) (core.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return core.ExecutionResult{}, err
	}
	h := hash32(strategy.ID)
	if e.failEvery > 0 && h%uint32(e.failEvery) == 0 {
		return core.ExecutionResult{
			Success:     false,
			ErrorText:   failureScripts[h%uint32(len(failureScripts))],
			TestsPassed: int(h % 2),
			TestsFailed: 2 + int(h%3),
			DurationMS:  15 + int64(h%30),
		}, nil
	}
	passed := 3 + int(h%4)
	return core.ExecutionResult{
		Success:     true,
		Output:      fmt.Sprintf("ok\t%d tests passed", passed),
		TestsPassed: passed,
		DurationMS:  10 + int64(h%40),
	}, nil
}

// EvaluateThought grades a thought deterministically in [0.55, 0.90].
func (e *Executor) EvaluateThought(ctx context.Context, thought string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 0.55 + float64(hash32(thought)%36)/100, nil
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
