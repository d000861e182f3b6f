// Package metrics holds the service's Prometheus collectors and the observer
// that bridges engine events onto them.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/snow-ghost/strategist/core"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	// Search metrics
	SearchesTotal       *prometheus.CounterVec
	SearchesInFlight    prometheus.Gauge
	SearchFailures      prometheus.Counter
	IterationsPerSearch prometheus.Histogram
	NodesExpandedTotal  prometheus.Counter
	SimulationsTotal    prometheus.Counter
	SimulationReward    prometheus.Histogram
	TokensTotal         *prometheus.CounterVec
	CostUSDTotal        prometheus.Counter

	// Provider metrics
	ProviderTokensInput  *prometheus.CounterVec
	ProviderTokensOutput *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "searches_total",
				Help:      "Total number of finished searches by terminal state",
			},
			[]string{"state"},
		),

		SearchesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "strategist",
				Name:      "searches_in_flight",
				Help:      "Number of searches currently running",
			},
		),

		SearchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "search_failures_total",
				Help:      "Total number of searches aborted by a fatal error",
			},
		),

		IterationsPerSearch: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "strategist",
				Name:      "search_iterations",
				Help:      "Iterations completed per search",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),

		NodesExpandedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "nodes_expanded_total",
				Help:      "Total number of tree nodes created by expansion",
			},
		),

		SimulationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "simulations_total",
				Help:      "Total number of simulations",
			},
		),

		SimulationReward: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "strategist",
				Name:      "simulation_reward",
				Help:      "Reward distribution across simulations",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "tokens_total",
				Help:      "Total estimated tokens spent by search phase",
			},
			[]string{"phase"},
		),

		CostUSDTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "cost_usd_total",
				Help:      "Total estimated cost of finished searches in USD",
			},
		),

		ProviderTokensInput: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "provider_tokens_input_total",
				Help:      "Provider-reported prompt tokens by model",
			},
			[]string{"model"},
		),

		ProviderTokensOutput: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "provider_tokens_output_total",
				Help:      "Provider-reported completion tokens by model",
			},
			[]string{"model"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "strategist",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, path and status code",
			},
			[]string{"method", "path", "code"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "strategist",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordProviderUsage records provider-reported token usage. It matches the
// executor adapter's usage callback signature.
func (m *Metrics) RecordProviderUsage(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.ProviderTokensInput.WithLabelValues(model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.ProviderTokensOutput.WithLabelValues(model).Add(float64(completionTokens))
	}
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, code int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Observer returns a core.Observer that feeds engine events into the
// collectors.
func (m *Metrics) Observer() *Observer {
	return &Observer{m: m}
}

// Observer implements core.Observer over the collectors.
type Observer struct {
	m *Metrics
}

// OnEvent maps one engine event onto the collectors. Per-phase token counts
// come from the expansion and simulation deltas; totals on search_end only
// feed the cost counter so tokens are not double counted.
func (o *Observer) OnEvent(e core.Event) {
	switch e.Kind {
	case core.EventSearchStart:
		o.m.SearchesInFlight.Inc()
	case core.EventNodesExpanded:
		o.m.NodesExpandedTotal.Add(float64(e.Children))
		o.m.TokensTotal.WithLabelValues("expansion").Add(float64(e.Tokens))
	case core.EventSimulationEnd:
		o.m.SimulationsTotal.Inc()
		o.m.SimulationReward.Observe(e.Reward)
		o.m.TokensTotal.WithLabelValues("simulation").Add(float64(e.Tokens))
	case core.EventSearchEnd:
		o.m.SearchesInFlight.Dec()
		o.m.SearchesTotal.WithLabelValues(e.State).Inc()
		o.m.IterationsPerSearch.Observe(float64(e.Iteration))
		o.m.CostUSDTotal.Add(e.CostUSD)
		if e.Err != nil {
			o.m.SearchFailures.Inc()
		}
	}
}
