// Package wasm executes strategy artifacts under the wazero runtime. A
// strategy is runnable here when its file changes include a compiled .wasm
// module (base64 content) exporting an apply function with the convention
// (ptr, size) -> (ptr, size) over linear memory.
package wasm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/snow-ghost/strategist/core"
)

// Runner implements core.StrategyRunner over wazero. Compiled modules are
// cached per strategy id; the cache is safe for concurrent use.
type Runner struct {
	runtime wazero.Runtime
	timeout time.Duration
	input   []byte
	mu      sync.Mutex
	cache   map[string]wazero.CompiledModule
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	memoryPages uint32
	timeout     time.Duration
	input       []byte
}

// WithMemoryLimitPages caps module memory. One page is 64KiB; the default of
// 64 pages allows 4MiB.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *options) { o.memoryPages = pages }
}

// WithTimeout bounds one apply call. Defaults to 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithInput sets the payload passed to every apply call. Defaults to "{}".
func WithInput(input []byte) Option {
	return func(o *options) { o.input = input }
}

// NewRunner creates a Runner with its own wazero runtime.
func NewRunner(opts ...Option) *Runner {
	o := options{
		memoryPages: 64,
		timeout:     30 * time.Second,
		input:       []byte("{}"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	config := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(o.memoryPages).
		WithCloseOnContextDone(true)

	runtime := wazero.NewRuntimeWithConfig(context.Background(), config)
	wasi_snapshot_preview1.MustInstantiate(context.Background(), runtime)

	return &Runner{
		runtime: runtime,
		timeout: o.timeout,
		input:   o.input,
		cache:   make(map[string]wazero.CompiledModule),
	}
}

// Run executes the strategy's wasm artifact. Every failure is returned as an
// error; callers treat them as failed executions, not aborts.
func (r *Runner) Run(ctx context.Context, strategy core.Strategy) (core.ExecutionResult, error) {
	artifact, err := wasmArtifact(strategy)
	if err != nil {
		return core.ExecutionResult{}, err
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	module, err := r.compiled(execCtx, strategy.ID, artifact)
	if err != nil {
		return core.ExecutionResult{}, err
	}

	instance, err := r.runtime.InstantiateModule(execCtx, module, wazero.NewModuleConfig().WithName(strategy.ID))
	if err != nil {
		return core.ExecutionResult{}, fmt.Errorf("failed to instantiate module: %w", err)
	}
	defer instance.Close(execCtx)

	apply := instance.ExportedFunction("apply")
	if apply == nil {
		return core.ExecutionResult{}, fmt.Errorf("module does not export 'apply' function")
	}

	inputPtr, inputSize, err := writeInput(instance, r.input)
	if err != nil {
		return core.ExecutionResult{}, err
	}

	start := time.Now()
	results, err := apply.Call(execCtx, uint64(inputPtr), uint64(inputSize))
	if err != nil {
		return core.ExecutionResult{}, fmt.Errorf("failed to call apply: %w", err)
	}
	if len(results) != 2 {
		return core.ExecutionResult{}, fmt.Errorf("apply should return (ptr, size), got %d results", len(results))
	}

	output, err := readOutput(instance, uint32(results[0]), uint32(results[1]))
	if err != nil {
		return core.ExecutionResult{}, err
	}

	res := parseReport(output)
	res.DurationMS = time.Since(start).Milliseconds()
	return res, nil
}

// Close releases the runtime and all cached modules.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

func (r *Runner) compiled(ctx context.Context, id string, artifact []byte) (wazero.CompiledModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if module, ok := r.cache[id]; ok {
		return module, nil
	}

	module, err := r.runtime.CompileModule(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to compile strategy module: %w", err)
	}
	r.cache[id] = module
	return module, nil
}

// wasmArtifact finds the strategy's .wasm file change and decodes it. File
// names are visited in sorted order so the pick is stable when a strategy
// carries more than one artifact.
func wasmArtifact(strategy core.Strategy) ([]byte, error) {
	names := make([]string, 0, len(strategy.FileChanges))
	for name := range strategy.FileChanges {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasSuffix(name, ".wasm") {
			continue
		}
		artifact, err := base64.StdEncoding.DecodeString(strategy.FileChanges[name])
		if err != nil {
			return nil, fmt.Errorf("failed to decode artifact %s: %w", name, err)
		}
		return artifact, nil
	}
	return nil, fmt.Errorf("strategy %s has no .wasm artifact", strategy.ID)
}

func writeInput(instance api.Module, input []byte) (uint32, uint32, error) {
	mem := instance.Memory()
	if mem == nil {
		return 0, 0, fmt.Errorf("module has no memory")
	}
	if uint64(len(input)) > uint64(mem.Size()) {
		return 0, 0, fmt.Errorf("not enough memory: need %d bytes, have %d", len(input), mem.Size())
	}
	if !mem.Write(0, input) {
		return 0, 0, fmt.Errorf("failed to write input to memory")
	}
	return 0, uint32(len(input)), nil
}

func readOutput(instance api.Module, ptr, size uint32) ([]byte, error) {
	mem := instance.Memory()
	if mem == nil {
		return nil, fmt.Errorf("module has no memory")
	}
	data, ok := mem.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("failed to read output from memory")
	}
	return data, nil
}

// report is the structured shape a module may return. Success is a pointer
// so plain JSON output is not mistaken for a failed report.
type report struct {
	Success     *bool  `json:"success"`
	Output      string `json:"output"`
	ErrorText   string `json:"error_text"`
	TestsPassed int    `json:"tests_passed"`
	TestsFailed int    `json:"tests_failed"`
}

// parseReport maps module output to an ExecutionResult. Output that decodes
// into a report with an explicit success field is used as-is; anything else
// counts as the plain output of a run that completed.
func parseReport(output []byte) core.ExecutionResult {
	var rep report
	if err := json.Unmarshal(output, &rep); err == nil && rep.Success != nil {
		return core.ExecutionResult{
			Success:     *rep.Success,
			Output:      rep.Output,
			ErrorText:   rep.ErrorText,
			TestsPassed: rep.TestsPassed,
			TestsFailed: rep.TestsFailed,
		}
	}
	return core.ExecutionResult{Success: true, Output: string(output)}
}
