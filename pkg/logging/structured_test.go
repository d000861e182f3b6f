package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBuildsConfiguredLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(Config{Level: "debug", Format: format})
		require.NoErrorf(t, err, "format %s", format)
		assert.Truef(t, l.Core().Enabled(zapcore.DebugLevel), "format %s", format)
	}
}

func TestNewDefaultsToInfoJSON(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	require.Error(t, err)
}

func TestSearchHelpers(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(obs)

	scoped := WithSearch(l, "req-9", "coding")
	LogSearch(scoped, "EARLY_STOP", 4, 12, 900, 0.018, 0.92, 1500*time.Millisecond)
	LogRequest(l, "POST", "/search", 200, 20*time.Millisecond)

	entries := logs.All()
	require.Len(t, entries, 2)

	search := entries[0]
	assert.Equal(t, "search completed", search.Message)
	fields := search.ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "coding", fields["problem_type"])
	assert.Equal(t, "EARLY_STOP", fields["state"])
	assert.Equal(t, int64(4), fields["iterations"])
	assert.Equal(t, int64(900), fields["tokens"])
	assert.Equal(t, 0.92, fields["best_score"])
	assert.Equal(t, 1500.0, fields["duration_ms"])

	request := entries[1]
	assert.Equal(t, "http request completed", request.Message)
	rf := request.ContextMap()
	assert.Equal(t, "POST", rf["method"])
	assert.Equal(t, "/search", rf["path"])
	assert.Equal(t, int64(200), rf["status_code"])
}
