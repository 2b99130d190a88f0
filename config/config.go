// Package config provides hierarchical configuration loading for umlforge.
// Precedence: defaults < YAML file < environment variables.
package config

// Config holds all runtime configuration for the umlforge CLI and the
// reference workflow.
type Config struct {
	Model   Model   `yaml:"model"`
	Loop    Loop    `yaml:"loop"`
	Logging Logging `yaml:"logging"`
	MCP     MCP     `yaml:"mcp"`
}

// Model selects the completion provider and its limits.
type Model struct {
	Provider      string  `yaml:"provider"` // "anthropic" | "openai" | "mock"
	Name          string  `yaml:"name"`     // provider-specific model id, empty = provider default
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int64   `yaml:"max_tokens"`
	APIKey        string  `yaml:"api_key"`
	MaxConcurrent int     `yaml:"max_concurrent"` // completion pool size
	MaxCalls      int     `yaml:"max_calls"`      // per-run completion cap, 0 = unlimited
}

// Loop bounds the refinement loop of the reference workflow.
type Loop struct {
	MaxIterations  int     `yaml:"max_iterations"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `yaml:"format"` // "text" | "json"
}

// MCP optionally connects an MCP tool server to the workflow agents.
type MCP struct {
	Enabled   bool              `yaml:"enabled"`
	Transport string            `yaml:"transport"` // "stdio" | "sse" | "streamable-http"
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Model: Model{
			Provider:      "anthropic",
			Temperature:   0.7,
			MaxTokens:     4096,
			MaxConcurrent: 4,
		},
		Loop: Loop{
			MaxIterations:  5,
			ScoreThreshold: 0.8,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		MCP: MCP{
			Transport: "stdio",
		},
	}
}
