package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, 4, cfg.Model.MaxConcurrent)
	assert.Equal(t, 5, cfg.Loop.MaxIterations)
	assert.Equal(t, 0.8, cfg.Loop.ScoreThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFrom_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umlforge.yaml")
	yaml := `
model:
  provider: openai
  name: gpt-4o
loop:
  max_iterations: 3
  score_threshold: 0.9
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, 3, cfg.Loop.MaxIterations)
	assert.Equal(t, 0.9, cfg.Loop.ScoreThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// untouched sections keep defaults
	assert.Equal(t, 4, cfg.Model.MaxConcurrent)
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umlforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  provider: openai\n"), 0o600))

	t.Setenv("UMLFORGE_MODEL_PROVIDER", "mock")
	t.Setenv("UMLFORGE_LOOP_MAX_ITERATIONS", "7")
	t.Setenv("UMLFORGE_LOOP_SCORE_THRESHOLD", "0.95")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Equal(t, 7, cfg.Loop.MaxIterations)
	assert.Equal(t, 0.95, cfg.Loop.ScoreThreshold)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "umlforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [broken"), 0o600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config yaml")
}

func TestLoadFrom_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown provider",
			env:  map[string]string{"UMLFORGE_MODEL_PROVIDER": "cohere"},
			want: "model.provider",
		},
		{
			name: "zero iterations",
			env:  map[string]string{"UMLFORGE_LOOP_MAX_ITERATIONS": "0"},
			want: "loop.max_iterations",
		},
		{
			name: "threshold out of range",
			env:  map[string]string{"UMLFORGE_LOOP_SCORE_THRESHOLD": "1.5"},
			want: "loop.score_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
