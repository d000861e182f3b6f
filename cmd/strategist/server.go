package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/snow-ghost/strategist/core"
	"github.com/snow-ghost/strategist/mcts"
	"github.com/snow-ghost/strategist/pkg/logging"
	"github.com/snow-ghost/strategist/pkg/metrics"
	"github.com/snow-ghost/strategist/pkg/tracing"
)

// components are the long-lived collaborators shared by every search.
type components struct {
	exec       core.Executor
	scorer     core.Scorer
	trace      core.TraceLog
	experience core.ExperienceRepository
	estimator  core.TokenEstimator
	metrics    *metrics.Metrics
	tracer     *tracing.Tracer
}

// server fronts the engine over HTTP. Each request builds a fresh engine so
// the per-search tracing observer stays isolated; the engine itself is cheap
// to construct and all heavy collaborators are shared.
type server struct {
	cfg    Config
	logger *zap.Logger
	comps  components
	mux    *http.ServeMux
	seq    atomic.Int64
}

func newServer(cfg Config, logger *zap.Logger, comps components) *server {
	s := &server{
		cfg:    cfg,
		logger: logger,
		comps:  comps,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/search", s.handleSearch)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// searchResponse is the JSON projection of one finished run. The tree itself
// stays server-side; callers get the strategies, scores and metrics.
type searchResponse struct {
	State          string                          `json:"state"`
	BestStrategyID string                          `json:"best_strategy_id,omitempty"`
	BestScore      float64                         `json:"best_score"`
	BestStrategy   *core.Strategy                  `json:"best_strategy,omitempty"`
	Strategies     []core.Strategy                 `json:"strategies,omitempty"`
	Executions     map[string]core.ExecutionResult `json:"executions,omitempty"`
	Scores         map[string]float64              `json:"scores,omitempty"`
	TotalGenerated int                             `json:"total_generated"`
	TotalExecuted  int                             `json:"total_executed"`
	TotalPassed    int                             `json:"total_passed"`
	Metrics        core.SearchMetrics              `json:"metrics"`
	WinningPath    *core.WinningPath               `json:"winning_path,omitempty"`
}

func newSearchResponse(res *mcts.Result) searchResponse {
	resp := searchResponse{
		State:          string(res.State),
		BestStrategyID: res.BestStrategyID,
		BestScore:      res.BestScore,
		Strategies:     res.AllStrategies,
		Executions:     res.ExecutedStrategies,
		Scores:         res.Scores,
		TotalGenerated: res.TotalGenerated,
		TotalExecuted:  res.TotalExecuted,
		TotalPassed:    res.TotalPassed,
		Metrics:        res.Metrics,
		WinningPath:    res.WinningPath,
	}
	for i := range res.AllStrategies {
		if res.AllStrategies[i].ID == res.BestStrategyID {
			resp.BestStrategy = &res.AllStrategies[i]
			break
		}
	}
	return resp
}

// handleSearch handles POST /search with a JSON Problem and returns the run
// result. The whole request is bounded by the configured search timeout.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		s.observe(r.Method, "/search", http.StatusMethodNotAllowed, start)
		return
	}

	var problem core.Problem
	if err := json.NewDecoder(r.Body).Decode(&problem); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		s.observe(r.Method, "/search", http.StatusBadRequest, start)
		return
	}
	if strings.TrimSpace(problem.Description) == "" {
		http.Error(w, "problem description is required", http.StatusBadRequest)
		s.observe(r.Method, "/search", http.StatusBadRequest, start)
		return
	}

	ctx := r.Context()
	if s.cfg.SearchTimeout.std() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout.std())
		defer cancel()
	}

	requestID := fmt.Sprintf("req-%d", s.seq.Add(1))
	runLogger := logging.WithSearch(s.logger, requestID, problem.Type)

	res, err := s.runSearch(ctx, runLogger, problem)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.observe(r.Method, "/search", http.StatusInternalServerError, start)
		return
	}

	logging.LogSearch(runLogger, string(res.State),
		res.Metrics.IterationsCompleted, res.Metrics.NodesCreated,
		res.Metrics.TotalTokensUsed, res.Metrics.TotalCostUSD,
		res.BestScore, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newSearchResponse(res))
	s.observe(r.Method, "/search", http.StatusOK, start)
}

// runSearch assembles the observer chain and a fresh engine for one request.
func (s *server) runSearch(ctx context.Context, logger *zap.Logger, problem core.Problem) (*mcts.Result, error) {
	observers := core.MultiObserver{s.comps.metrics.Observer()}
	if s.comps.tracer != nil {
		observers = append(observers, s.comps.tracer.Observer(ctx, problem.Type))
	}

	engine, err := mcts.New(s.cfg.Engine, s.comps.exec, s.comps.scorer,
		mcts.WithObserver(observers),
		mcts.WithTraceLog(s.comps.trace),
		mcts.WithExperience(s.comps.experience),
		mcts.WithTokenEstimator(s.comps.estimator),
		mcts.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine.Search(ctx, problem)
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"strategist","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func (s *server) observe(method, path string, code int, start time.Time) {
	elapsed := time.Since(start)
	s.comps.metrics.ObserveHTTPRequest(method, path, code, elapsed)
	logging.LogRequest(s.logger, method, path, code, elapsed)
}
