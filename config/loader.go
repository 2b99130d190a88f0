package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "umlforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Model.Provider, "UMLFORGE_MODEL_PROVIDER")
	setString(&cfg.Model.Name, "UMLFORGE_MODEL_NAME")
	setFloat64(&cfg.Model.Temperature, "UMLFORGE_MODEL_TEMPERATURE")
	setInt64(&cfg.Model.MaxTokens, "UMLFORGE_MODEL_MAX_TOKENS")
	setString(&cfg.Model.APIKey, "UMLFORGE_API_KEY")
	setInt(&cfg.Model.MaxConcurrent, "UMLFORGE_MODEL_MAX_CONCURRENT")
	setInt(&cfg.Model.MaxCalls, "UMLFORGE_MODEL_MAX_CALLS")

	setInt(&cfg.Loop.MaxIterations, "UMLFORGE_LOOP_MAX_ITERATIONS")
	setFloat64(&cfg.Loop.ScoreThreshold, "UMLFORGE_LOOP_SCORE_THRESHOLD")

	setString(&cfg.Logging.Level, "UMLFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Format, "UMLFORGE_LOG_FORMAT")

	setBool(&cfg.MCP.Enabled, "UMLFORGE_MCP_ENABLED")
	setString(&cfg.MCP.Transport, "UMLFORGE_MCP_TRANSPORT")
	setString(&cfg.MCP.Command, "UMLFORGE_MCP_COMMAND")
	setString(&cfg.MCP.URL, "UMLFORGE_MCP_URL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	switch cfg.Model.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("model.provider must be anthropic, openai or mock, got %q", cfg.Model.Provider)
	}
	if cfg.Model.MaxConcurrent < 1 {
		return errors.New("model.max_concurrent must be >= 1")
	}
	if cfg.Model.MaxCalls < 0 {
		return errors.New("model.max_calls must be >= 0")
	}
	if cfg.Loop.MaxIterations < 1 {
		return errors.New("loop.max_iterations must be >= 1")
	}
	if cfg.Loop.ScoreThreshold < 0 || cfg.Loop.ScoreThreshold > 1 {
		return errors.New("loop.score_threshold must be within [0, 1]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
