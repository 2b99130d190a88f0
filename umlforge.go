// Package umlforge provides a high-level façade over the workflow engine for
// the common case: turn one natural language requirement into a PlantUML
// document. Most applications interact with the module by:
//  1. Constructing a model.Client (anthropic, openai or a mock)
//  2. Calling Generate with the requirement
//
// Applications that need a different pipeline shape compose the planner,
// stage and agent packages directly; the uml package shows how.
package umlforge

import (
	"context"
	"errors"
	"fmt"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
	"github.com/umlforge/umlforge/model"
	"github.com/umlforge/umlforge/tool"
	"github.com/umlforge/umlforge/uml"
)

// Options configures one Generate call.
type Options struct {
	// ScoreThreshold is the convergence bar for the refinement loop.
	ScoreThreshold float64

	// MaxIterations caps refinement passes.
	MaxIterations int

	// MaxCalls bounds completions per run. 0 means unlimited.
	MaxCalls int

	// Tools, when set, is offered to the drafting agent.
	Tools tool.Provider

	// Logger receives engine progress. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Generate runs the reference workflow against the requirement and returns
// the rendered PlantUML document together with the full workflow result
// (run id, per-loop iteration counts and termination reasons).
//
// An agent failure comes back wrapped so the caller sees which agent broke
// and why; errors.As against *core.AgentError recovers the structured form.
func Generate(ctx context.Context, client model.Client, requirement string, optFns ...func(o *Options)) (string, *core.WorkflowResult, error) {
	opts := Options{
		ScoreThreshold: 0.8,
		MaxIterations:  5,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if requirement == "" {
		return "", nil, errors.New("requirement must not be empty")
	}

	if opts.MaxCalls > 0 {
		client = model.NewLimited(client, opts.MaxCalls)
	}

	wf, err := uml.Build(client, func(o *uml.Options) {
		o.ScoreThreshold = opts.ScoreThreshold
		o.MaxIterations = opts.MaxIterations
		o.Tools = opts.Tools
		o.Logger = opts.Logger
	})
	if err != nil {
		return "", nil, fmt.Errorf("building workflow: %w", err)
	}

	result, err := wf.Invoke(ctx, uml.Seed(requirement))
	if err != nil {
		return "", nil, fmt.Errorf("generating uml document: %w", err)
	}

	doc, ok := result.Output.AsText()
	if !ok {
		return "", nil, fmt.Errorf("workflow output %q is not text", uml.KeyDocument)
	}

	return doc, result, nil
}
