package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/snow-ghost/strategist/core"
)

func TestObserverMapsEngineEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	obs := m.Observer()

	obs.OnEvent(core.Event{Kind: core.EventSearchStart})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesInFlight))

	obs.OnEvent(core.Event{Kind: core.EventNodesExpanded, Children: 3, Tokens: 300})
	obs.OnEvent(core.Event{Kind: core.EventSimulationEnd, Reward: 0.8, Tokens: 500})
	obs.OnEvent(core.Event{Kind: core.EventSearchEnd, Iteration: 4, State: "MAX_ITERATIONS", Tokens: 800, CostUSD: 0.016})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.NodesExpandedTotal))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("expansion")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("simulation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("MAX_ITERATIONS")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SearchesInFlight))
	assert.InDelta(t, 0.016, testutil.ToFloat64(m.CostUSDTotal), 1e-9)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SearchFailures))
}

func TestObserverCountsAborts(t *testing.T) {
	m := New(prometheus.NewRegistry())
	obs := m.Observer()

	obs.OnEvent(core.Event{Kind: core.EventSearchStart})
	obs.OnEvent(core.Event{Kind: core.EventSearchEnd, Iteration: 1, State: "RUNNING", Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("RUNNING")))
}

func TestRecordProviderUsage(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordProviderUsage("gpt-4o", 120, 40)
	m.RecordProviderUsage("gpt-4o", 80, 0)

	assert.Equal(t, 200.0, testutil.ToFloat64(m.ProviderTokensInput.WithLabelValues("gpt-4o")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.ProviderTokensOutput.WithLabelValues("gpt-4o")))
}

func TestObserveHTTPRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTPRequest("POST", "/search", 200, 150*time.Millisecond)
	m.ObserveHTTPRequest("POST", "/search", 400, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/search", "400")))
}
