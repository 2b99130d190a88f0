// Command umlforge turns a natural language requirement into a PlantUML
// class diagram by iteratively drafting, critiquing and scoring a model
// until it is good enough.
package main

import (
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/umlforge/umlforge"
	"github.com/umlforge/umlforge/config"
	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
	"github.com/umlforge/umlforge/model"
	"github.com/umlforge/umlforge/model/anthropic"
	"github.com/umlforge/umlforge/model/openai"
	"github.com/umlforge/umlforge/tool/mcp"
)

func main() {
	// .env is optional; real environment always wins
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "umlforge",
		Short: "Iterative UML model generation",
		Long:  "umlforge drives a draft-critique-score loop over a language model until the UML class model converges, then renders it as PlantUML.",
	}

	rootCmd.AddCommand(newGenerateCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <requirement>",
		Short: "Generate a PlantUML document from a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			provider, _ := cmd.Flags().GetString("provider")
			modelName, _ := cmd.Flags().GetString("model")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			iterations, _ := cmd.Flags().GetInt("iterations")

			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Model.Provider = provider
			}
			if modelName != "" {
				cfg.Model.Name = modelName
			}
			if cmd.Flags().Changed("threshold") {
				cfg.Loop.ScoreThreshold = threshold
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Loop.MaxIterations = iterations
			}

			return runGenerate(cmd, cfg, args[0])
		},
	}

	cmd.Flags().String("config", config.DefaultConfigFile, "Path to the YAML config file")
	cmd.Flags().StringP("provider", "p", "", "Model provider: anthropic, openai or mock")
	cmd.Flags().StringP("model", "m", "", "Provider-specific model name")
	cmd.Flags().Float64P("threshold", "t", 0.8, "Score threshold for convergence")
	cmd.Flags().IntP("iterations", "i", 5, "Maximum refinement iterations")
	return cmd
}

func runGenerate(cmd *cobra.Command, cfg *config.Config, requirement string) error {
	logger := logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}

	pooled, err := model.NewPool(client, int64(cfg.Model.MaxConcurrent))
	if err != nil {
		return fmt.Errorf("building completion pool: %w", err)
	}

	var tools *mcp.Provider
	if cfg.MCP.Enabled {
		tools, err = mcp.New(cmd.Context(), mcp.Config{
			Transport: mcp.Transport(cfg.MCP.Transport),
			Command:   cfg.MCP.Command,
			Args:      cfg.MCP.Args,
			Env:       cfg.MCP.Env,
			URL:       cfg.MCP.URL,
			Headers:   cfg.MCP.Headers,
		})
		if err != nil {
			return fmt.Errorf("connecting mcp server: %w", err)
		}
		defer tools.Close()
		logger.Info("mcp server connected", "server", tools.ServerName())
	}

	doc, result, err := umlforge.Generate(cmd.Context(), pooled, requirement,
		func(o *umlforge.Options) {
			o.ScoreThreshold = cfg.Loop.ScoreThreshold
			o.MaxIterations = cfg.Loop.MaxIterations
			o.MaxCalls = cfg.Model.MaxCalls
			if tools != nil {
				o.Tools = tools
			}
			o.Logger = logger
		},
	)
	if err != nil {
		return err
	}

	fmt.Println(doc)

	for _, loop := range result.Loops {
		switch loop.Reason {
		case core.Converged:
			fmt.Fprintf(os.Stderr, "loop %s converged after %d iteration(s)\n", loop.Stage, loop.Iterations)
		case core.IterationCapReached:
			fmt.Fprintf(os.Stderr, "loop %s hit its cap of %d iteration(s) without converging\n", loop.Stage, loop.Iterations)
		}
	}

	return nil
}

// buildClient constructs the configured provider adapter.
func buildClient(cfg *config.Config) (model.Client, error) {
	switch cfg.Model.Provider {
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxTokens = cfg.Model.MaxTokens
			o.APIKey = cfg.Model.APIKey
		}), nil
	case "openai":
		return openai.New(func(o *openai.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.Temperature = cfg.Model.Temperature
			o.MaxCompletionTokens = cfg.Model.MaxTokens
			o.APIKey = cfg.Model.APIKey
		}), nil
	case "mock":
		return model.NewMockClient("mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}
