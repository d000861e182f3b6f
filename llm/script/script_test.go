package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/strategist/core"
)

func TestGenerateNextThoughtsIsDeterministic(t *testing.T) {
	ctx := context.Background()
	problem := core.Problem{Description: "make the tests pass", Type: "bugfix"}

	first, err := New().GenerateNextThoughts(ctx, "root summary", problem, "", 3)
	require.NoError(t, err)
	second, err := New().GenerateNextThoughts(ctx, "root summary", problem, "", 3)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1], "slots should rotate templates")
}

func TestGenerateNextThoughtsFoldsGuidanceIn(t *testing.T) {
	ctx := context.Background()
	problem := core.Problem{Description: "make the tests pass"}
	exec := New()

	plain, err := exec.GenerateNextThoughts(ctx, "summary", problem, "", 1)
	require.NoError(t, err)
	guided, err := exec.GenerateNextThoughts(ctx, "summary", problem, "Avoid these mistakes: off by one", 1)
	require.NoError(t, err)

	assert.NotEqual(t, plain[0], guided[0])
	assert.Contains(t, guided[0], "avoiding the earlier failure")
}

func TestGenerateCompleteStrategy(t *testing.T) {
	ctx := context.Background()
	problem := core.Problem{Description: "make the tests pass"}
	exec := New()

	path := []string{"write a failing test", "fix the bug"}
	strategy, err := exec.GenerateCompleteStrategy(ctx, path, problem, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strategy.ID, "script-"))
	assert.Equal(t, "fix the bug", strategy.Summary)
	require.Contains(t, strategy.FileChanges, "solution.go")
	assert.Contains(t, strategy.FileChanges["solution.go"], strategy.ID)

	again, err := exec.GenerateCompleteStrategy(ctx, path, problem, "")
	require.NoError(t, err)
	assert.Equal(t, strategy, again)

	guided, err := exec.GenerateCompleteStrategy(ctx, path, problem, "Avoid these mistakes: off by one")
	require.NoError(t, err)
	assert.NotEqual(t, strategy.ID, guided.ID, "guidance should change the strategy id")
}

func TestGenerateCompleteStrategyEmptyPathUsesProblem(t *testing.T) {
	exec := New()
	strategy, err := exec.GenerateCompleteStrategy(context.Background(), nil, core.Problem{Description: "sort the slice"}, "")
	require.NoError(t, err)
	assert.Equal(t, "sort the slice", strategy.Summary)
}

func TestExecuteStrategyFailureSlots(t *testing.T) {
	ctx := context.Background()

	always := New(WithFailEvery(1))
	res, err := always.ExecuteStrategy(ctx, core.Strategy{ID: "script-0000beef"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorText)
	assert.Greater(t, res.TestsFailed, 0)

	never := New(WithFailEvery(0))
	res, err = never.ExecuteStrategy(ctx, core.Strategy{ID: "script-0000beef"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.TestsFailed)
	assert.Contains(t, res.Output, "tests passed")
}

func TestExecuteStrategyIsDeterministic(t *testing.T) {
	ctx := context.Background()
	exec := New()

	first, err := exec.ExecuteStrategy(ctx, core.Strategy{ID: "script-cafe"})
	require.NoError(t, err)
	second, err := exec.ExecuteStrategy(ctx, core.Strategy{ID: "script-cafe"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateThoughtRange(t *testing.T) {
	exec := New()
	for _, thought := range thoughtTemplates {
		score, err := exec.EvaluateThought(context.Background(), thought)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0.55)
		assert.LessOrEqual(t, score, 0.91)
	}
}

func TestScriptedCallsHonorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := New()

	_, err := exec.GenerateNextThoughts(ctx, "s", core.Problem{Description: "p"}, "", 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = exec.GenerateCompleteStrategy(ctx, []string{"t"}, core.Problem{Description: "p"}, "")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = exec.ExecuteStrategy(ctx, core.Strategy{ID: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = exec.EvaluateThought(ctx, "t")
	assert.ErrorIs(t, err, context.Canceled)
}
