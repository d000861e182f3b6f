package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snow-ghost/strategist/llm/openai"
	"github.com/snow-ghost/strategist/mcts"
	"github.com/snow-ghost/strategist/pkg/limiter"
	"github.com/snow-ghost/strategist/pkg/logging"
	"github.com/snow-ghost/strategist/pkg/tracing"
)

// duration wraps time.Duration so YAML configs can write "30s" or "5m".
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

func (d duration) std() time.Duration { return time.Duration(d) }

// Config assembles every tunable of the service. Values apply in order:
// defaults, then the YAML file when present, then environment overrides.
type Config struct {
	Port string `yaml:"port"`
	// Executor selects the adapter: "script" runs the offline deterministic
	// executor, "openai" wires the chat adapter to the WASM sandbox.
	Executor string `yaml:"executor"`

	// FlywheelDir receives the append-only winning-path log.
	FlywheelDir string `yaml:"flywheel_dir"`
	// ExperienceDB is a SQLite file path. Empty keeps the mirror in memory.
	ExperienceDB string `yaml:"experience_db"`

	// SearchTimeout bounds one POST /search request end to end.
	SearchTimeout duration `yaml:"search_timeout"`
	// SandboxTimeout bounds one strategy execution inside the WASM runner.
	SandboxTimeout duration `yaml:"sandbox_timeout"`

	Engine  mcts.Config               `yaml:"engine"`
	OpenAI  openai.Config             `yaml:"openai"`
	Limits  map[string]limiter.Limits `yaml:"limits"`
	Logging logging.Config            `yaml:"logging"`
	Tracing tracing.Config            `yaml:"tracing"`
}

func defaultConfig() Config {
	return Config{
		Port:           "8080",
		Executor:       "script",
		FlywheelDir:    "./flywheel",
		SearchTimeout:  duration(10 * time.Minute),
		SandboxTimeout: duration(30 * time.Second),
		Engine:         mcts.DefaultConfig(),
		OpenAI: openai.Config{
			Model: "gpt-4o-mini",
		},
		Logging: logging.Config{Level: "info", Format: "json", Output: "stdout"},
		Tracing: tracing.Config{ServiceName: "strategist"},
	}
}

// loadConfig builds the effective configuration. A missing file is not an
// error: defaults plus environment keep the binary runnable with zero setup.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = getEnv("CONFIG", "strategist.yaml")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables. The API key is
// only ever read from the environment, never from the file.
func (c *Config) applyEnv() {
	c.Port = getEnv("STRATEGIST_PORT", c.Port)
	c.Executor = getEnv("STRATEGIST_EXECUTOR", c.Executor)
	c.FlywheelDir = getEnv("FLYWHEEL_DIR", c.FlywheelDir)
	c.ExperienceDB = getEnv("EXPERIENCE_DB", c.ExperienceDB)
	c.SearchTimeout = duration(getEnvDuration("SEARCH_TIMEOUT", c.SearchTimeout.std()))
	c.SandboxTimeout = duration(getEnvDuration("SANDBOX_TIMEOUT", c.SandboxTimeout.std()))

	c.Engine.MaxIterations = getEnvInt("MAX_ITERATIONS", c.Engine.MaxIterations)
	c.Engine.MaxDepth = getEnvInt("MAX_DEPTH", c.Engine.MaxDepth)
	c.Engine.MaxTotalTokens = getEnvInt("MAX_TOTAL_TOKENS", c.Engine.MaxTotalTokens)
	c.Engine.MaxCostUSD = getEnvFloat("MAX_COST_USD", c.Engine.MaxCostUSD)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.JudgeModel = getEnv("OPENAI_JUDGE_MODEL", c.OpenAI.JudgeModel)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.Tracing.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", c.Tracing.JaegerEndpoint)
	c.Tracing.Environment = getEnv("ENVIRONMENT", c.Tracing.Environment)
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	switch c.Executor {
	case "script", "openai":
	default:
		return fmt.Errorf("unknown executor %q (want script or openai)", c.Executor)
	}
	if c.Executor == "openai" && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai executor requires OPENAI_API_KEY")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
