package wasm

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/strategist/core"
)

// trapModule's apply hits unreachable immediately.
var trapModule = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	// Type section
	0x01, 0x08, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x02, 0x7f, 0x7f,
	// Function section
	0x03, 0x02, 0x01, 0x00,
	// Memory section
	0x05, 0x03, 0x01, 0x00, 0x01,
	// Export section
	0x07, 0x12, 0x02,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x05, 0x61, 0x70, 0x70, 0x6c, 0x79, 0x00, 0x00,
	// Code section: unreachable
	0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b,
}

// memoryOnlyModule exports memory but no apply function.
var memoryOnlyModule = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	// Type section
	0x01, 0x08, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x02, 0x7f, 0x7f,
	// Function section
	0x03, 0x02, 0x01, 0x00,
	// Memory section
	0x05, 0x03, 0x01, 0x00, 0x01,
	// Export section
	0x07, 0x0a, 0x01,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	// Code section
	0x0a, 0x08, 0x01, 0x06, 0x00, 0x20, 0x00, 0x20, 0x01, 0x0b,
}

func wasmStrategy(id string, module []byte) core.Strategy {
	return core.Strategy{
		ID:      id,
		Summary: "wasm test strategy",
		FileChanges: map[string]string{
			"solution.wasm": base64.StdEncoding.EncodeToString(module),
			"notes.md":      "not an artifact",
		},
	}
}

func TestRunnerEchoesInput(t *testing.T) {
	runner := NewRunner(WithInput([]byte(`{"numbers":[3,1,4]}`)))
	defer runner.Close(context.Background())

	res, err := runner.Run(context.Background(), wasmStrategy("echo-1", EchoModule()))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, `{"numbers":[3,1,4]}`, res.Output)
	assert.GreaterOrEqual(t, res.DurationMS, int64(0))
}

func TestRunnerMapsStructuredReports(t *testing.T) {
	// The echo module returns its input, so feeding it a report exercises
	// the structured-output path end to end.
	input := `{"success":false,"error_text":"SyntaxError: invalid syntax","tests_passed":1,"tests_failed":2}`
	runner := NewRunner(WithInput([]byte(input)))
	defer runner.Close(context.Background())

	res, err := runner.Run(context.Background(), wasmStrategy("report-1", EchoModule()))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "SyntaxError: invalid syntax", res.ErrorText)
	assert.Equal(t, 1, res.TestsPassed)
	assert.Equal(t, 2, res.TestsFailed)
}

func TestRunnerMissingArtifact(t *testing.T) {
	runner := NewRunner()
	defer runner.Close(context.Background())

	strategy := core.Strategy{ID: "no-wasm", FileChanges: map[string]string{"main.go": "package main"}}
	_, err := runner.Run(context.Background(), strategy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .wasm artifact")
}

func TestRunnerBadArtifactEncoding(t *testing.T) {
	runner := NewRunner()
	defer runner.Close(context.Background())

	strategy := core.Strategy{ID: "bad-b64", FileChanges: map[string]string{"solution.wasm": "not base64!!"}}
	_, err := runner.Run(context.Background(), strategy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode artifact")
}

func TestRunnerInvalidModule(t *testing.T) {
	runner := NewRunner()
	defer runner.Close(context.Background())

	strategy := wasmStrategy("invalid-1", []byte("invalid wasm"))
	_, err := runner.Run(context.Background(), strategy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile")
}

func TestRunnerMissingApplyExport(t *testing.T) {
	runner := NewRunner()
	defer runner.Close(context.Background())

	_, err := runner.Run(context.Background(), wasmStrategy("no-apply", memoryOnlyModule))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not export 'apply'")
}

func TestRunnerTrapIsAnExecutionError(t *testing.T) {
	runner := NewRunner()
	defer runner.Close(context.Background())

	_, err := runner.Run(context.Background(), wasmStrategy("trap-1", trapModule))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call apply")
}

func TestRunnerReusesCompiledModules(t *testing.T) {
	runner := NewRunner()
	defer runner.Close(context.Background())

	strategy := wasmStrategy("cached-1", EchoModule())

	first, err := runner.Run(context.Background(), strategy)
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), strategy)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Len(t, runner.cache, 1)
}

func TestRunnerTimeout(t *testing.T) {
	runner := NewRunner(WithTimeout(time.Nanosecond))
	defer runner.Close(context.Background())

	// The deadline may fire before compilation or not at all on a fast
	// machine, so both outcomes are accepted.
	res, err := runner.Run(context.Background(), wasmStrategy("deadline-1", EchoModule()))
	if err == nil {
		assert.True(t, res.Success)
	}
}
