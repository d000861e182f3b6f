// Package logging builds the service's zap loggers and carries the helpers
// that keep search-related log fields consistent across packages.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level     string `json:"level" yaml:"level"`
	Format    string `json:"format" yaml:"format"` // "json" or "console"
	Output    string `json:"output" yaml:"output"` // "stdout" or "stderr"
	AddCaller bool   `json:"add_caller" yaml:"add_caller"`
	AddStack  bool   `json:"add_stack" yaml:"add_stack"`
}

// New builds a zap logger from config. Empty fields fall back to JSON on
// stdout at info level.
func New(config Config) (*zap.Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Output == "" {
		config.Output = "stdout"
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack

	return zapConfig.Build()
}

func parseLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// WithSearch scopes a logger to one search run.
func WithSearch(l *zap.Logger, requestID, problemType string) *zap.Logger {
	return l.With(
		zap.String("request_id", requestID),
		zap.String("problem_type", problemType),
	)
}

// LogRequest logs one completed HTTP request.
func LogRequest(l *zap.Logger, method, path string, statusCode int, duration time.Duration) {
	l.Info("http request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	)
}

// LogSearch logs one finished search with its headline numbers.
func LogSearch(l *zap.Logger, state string, iterations, nodes, tokens int, costUSD, bestScore float64, duration time.Duration) {
	l.Info("search completed",
		zap.String("state", state),
		zap.Int("iterations", iterations),
		zap.Int("nodes", nodes),
		zap.Int("tokens", tokens),
		zap.Float64("cost_usd", costUSD),
		zap.Float64("best_score", bestScore),
		zap.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	)
}
