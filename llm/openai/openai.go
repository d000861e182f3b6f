// Package openai adapts an OpenAI-compatible chat API to the core.Executor
// port. Every chat call runs through the limiter guard (rate limit, circuit
// breaker, bounded retry); the k thoughts of one expansion are generated
// concurrently and reassembled in slot order.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snow-ghost/strategist/core"
	"github.com/snow-ghost/strategist/pkg/limiter"
)

// Config holds the adapter's provider settings.
type Config struct {
	APIKey string `json:"-" yaml:"-"`
	// BaseURL overrides the provider endpoint for OpenAI-compatible
	// gateways. Empty means the official API.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Model generates thoughts and strategies.
	Model string `json:"model" yaml:"model"`
	// JudgeModel grades thoughts. Defaults to Model.
	JudgeModel string `json:"judge_model" yaml:"judge_model"`
	// Temperature applies to generation calls. Zero means 0.7.
	Temperature float32 `json:"temperature" yaml:"temperature"`
	// JudgeTemperature applies to judge calls. Zero means 0.1.
	JudgeTemperature float32 `json:"judge_temperature" yaml:"judge_temperature"`
	// MaxTokens caps each completion. Zero means the provider default.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// UsageFunc receives provider-reported token usage after each successful
// chat call, so budget accounting can use real counts instead of estimates.
type UsageFunc func(model string, promptTokens, completionTokens int)

// Executor implements core.Executor over the chat completions API.
type Executor struct {
	client  *goopenai.Client
	cfg     Config
	guard   *limiter.Guard
	runner  core.StrategyRunner
	logger  *zap.Logger
	onUsage UsageFunc
	seq     atomic.Int64
}

// Option configures the adapter.
type Option func(*Executor)

// WithGuard replaces the default protection chain.
func WithGuard(g *limiter.Guard) Option {
	return func(e *Executor) { e.guard = g }
}

// WithStrategyRunner injects the sandbox that ExecuteStrategy delegates to.
func WithStrategyRunner(r core.StrategyRunner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithLogger sets the adapter logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithUsageCallback registers a sink for provider-reported token usage.
func WithUsageCallback(fn UsageFunc) Option {
	return func(e *Executor) { e.onUsage = fn }
}

// New creates the adapter.
func New(cfg Config, opts ...Option) (*Executor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = cfg.Model
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.JudgeTemperature == 0 {
		cfg.JudgeTemperature = 0.1
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	e := &Executor{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.guard == nil {
		e.guard = limiter.DefaultGuard(e.logger)
	}
	return e, nil
}

// GenerateNextThoughts fans out one completion per slot and reassembles the
// replies in slot order, so the result is stable regardless of which call
// finishes first.
func (e *Executor) GenerateNextThoughts(ctx context.Context, summary string, problem core.Problem, guidance string, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("thought count must be positive, got %d", k)
	}

	slots := make([]string, k)
	g, gctx := errgroup.WithContext(ctx)
	for slot := 0; slot < k; slot++ {
		slot := slot
		g.Go(func() error {
			reply, err := e.chat(gctx, e.cfg.Model, e.cfg.Temperature, thoughtMessages(summary, problem, guidance, slot, k))
			if err != nil {
				return fmt.Errorf("thought %d: %w", slot+1, err)
			}
			slots[slot] = strings.TrimSpace(reply)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	thoughts := make([]string, 0, k)
	for _, t := range slots {
		if t != "" {
			thoughts = append(thoughts, t)
		}
	}
	return thoughts, nil
}

// GenerateCompleteStrategy asks for a strict-JSON strategy document and
// parses it. A missing id is defaulted from a run-local sequence.
func (e *Executor) GenerateCompleteStrategy(ctx context.Context, path []string, problem core.Problem, guidance string) (core.Strategy, error) {
	reply, err := e.chat(ctx, e.cfg.Model, e.cfg.Temperature, strategyMessages(path, problem, guidance))
	if err != nil {
		return core.Strategy{}, err
	}

	strategy, err := parseStrategy(reply, fmt.Sprintf("strategy-%d", e.seq.Add(1)))
	if err != nil {
		e.logger.Debug("strategy reply did not parse", zap.String("reply", headChars(reply, 200)), zap.Error(err))
		return core.Strategy{}, err
	}
	return strategy, nil
}

// ExecuteStrategy delegates to the injected strategy runner.
func (e *Executor) ExecuteStrategy(ctx context.Context, strategy core.Strategy) (core.ExecutionResult, error) {
	if e.runner == nil {
		return core.ExecutionResult{}, fmt.Errorf("no strategy runner configured")
	}
	return e.runner.Run(ctx, strategy)
}

// EvaluateThought sends the reviewer prompt at the judge temperature and
// parses the first number in the reply.
func (e *Executor) EvaluateThought(ctx context.Context, thought string) (float64, error) {
	reply, err := e.chat(ctx, e.cfg.JudgeModel, e.cfg.JudgeTemperature, judgeMessages(thought))
	if err != nil {
		return 0, err
	}

	score, err := parseScore(reply)
	if err != nil {
		return 0, fmt.Errorf("parse judge reply: %w", err)
	}
	return score, nil
}

// chat runs one completion through the guard and returns the first choice's
// content.
func (e *Executor) chat(ctx context.Context, model string, temperature float32, messages []goopenai.ChatCompletionMessage) (string, error) {
	result, err := e.guard.Call(ctx, model, func(ctx context.Context) (interface{}, error) {
		resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   e.cfg.MaxTokens,
		})
		if err != nil {
			return nil, classify(err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("completion returned no choices")
		}
		if e.onUsage != nil {
			e.onUsage(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// classify maps provider SDK errors to limiter.HTTPError so the retrier can
// tell transient failures from permanent ones.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return limiter.NewHTTPError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return limiter.NewHTTPError(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return err
}

func headChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
