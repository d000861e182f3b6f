// The strategist service runs tree searches over incoming problems: POST a
// problem, get back the best strategy the engine found, with every run
// mirrored to the flywheel log and the experience store.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/snow-ghost/strategist/core"
	"github.com/snow-ghost/strategist/experience"
	"github.com/snow-ghost/strategist/flywheel"
	"github.com/snow-ghost/strategist/llm/openai"
	"github.com/snow-ghost/strategist/llm/script"
	"github.com/snow-ghost/strategist/pkg/limiter"
	"github.com/snow-ghost/strategist/pkg/logging"
	"github.com/snow-ghost/strategist/pkg/metrics"
	"github.com/snow-ghost/strategist/pkg/tokens"
	"github.com/snow-ghost/strategist/pkg/tracing"
	"github.com/snow-ghost/strategist/sandbox/wasm"
	"github.com/snow-ghost/strategist/scorer"
)

func main() {
	cfg, err := loadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	m := metrics.New(nil)

	var tracer *tracing.Tracer
	if cfg.Tracing.JaegerEndpoint != "" {
		tracer, err = tracing.NewTracer(cfg.Tracing)
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
			tracer = nil
		} else {
			defer tracer.Shutdown(context.Background())
		}
	}

	exec, cleanup, err := buildExecutor(cfg, logger, m)
	if err != nil {
		logger.Fatal("build executor", zap.Error(err))
	}
	if cleanup != nil {
		defer cleanup()
	}

	var experienceRepo core.ExperienceRepository
	if cfg.ExperienceDB != "" {
		db, err := experience.NewSQLite(cfg.ExperienceDB)
		if err != nil {
			logger.Fatal("open experience store", zap.Error(err))
		}
		defer db.Close()
		experienceRepo = db
	} else {
		experienceRepo = experience.NewMemory()
	}

	var estimator core.TokenEstimator
	if tk, err := tokens.NewTiktoken("cl100k_base"); err != nil {
		logger.Warn("tiktoken unavailable, falling back to word-count estimator", zap.Error(err))
		estimator = tokens.NewHeuristic()
	} else {
		estimator = tk
	}

	srv := newServer(cfg, logger, components{
		exec:       exec,
		scorer:     scorer.NewRubric(),
		trace:      flywheel.NewStore(cfg.FlywheelDir),
		experience: experienceRepo,
		estimator:  estimator,
		metrics:    m,
		tracer:     tracer,
	})

	logger.Info("strategist starting",
		zap.String("port", cfg.Port),
		zap.String("executor", cfg.Executor),
		zap.String("flywheel_dir", cfg.FlywheelDir))
	if err := http.ListenAndServe(":"+cfg.Port, srv); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// buildExecutor selects the adapter named by the config. The returned cleanup
// releases the sandbox runtime when one was created.
func buildExecutor(cfg Config, logger *zap.Logger, m *metrics.Metrics) (core.Executor, func() error, error) {
	switch cfg.Executor {
	case "script":
		return script.New(), nil, nil
	case "openai":
		runner := wasm.NewRunner(wasm.WithTimeout(cfg.SandboxTimeout.std()))
		guard := limiter.NewGuard(cfg.Limits, limiter.DefaultBreakerConfig(), limiter.DefaultRetryConfig(), logger)
		exec, err := openai.New(cfg.OpenAI,
			openai.WithStrategyRunner(runner),
			openai.WithGuard(guard),
			openai.WithLogger(logger),
			openai.WithUsageCallback(m.RecordProviderUsage),
		)
		if err != nil {
			runner.Close(context.Background())
			return nil, nil, fmt.Errorf("openai executor: %w", err)
		}
		return exec, func() error { return runner.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown executor %q", cfg.Executor)
	}
}
