// Package uml assembles the reference workflow: a refinement loop that
// drafts, critiques and scores a textual UML model until it is good enough,
// followed by a finalize stage that parses the surviving draft and renders a
// PlantUML document from it.
package uml

import (
	"fmt"

	"github.com/umlforge/umlforge/agent"
	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
	"github.com/umlforge/umlforge/model"
	"github.com/umlforge/umlforge/planner"
	"github.com/umlforge/umlforge/stage"
	"github.com/umlforge/umlforge/tool"
)

// Scope keys the workflow reads and writes.
const (
	KeyRequirement = "requirement" // seeded natural language requirement
	KeyUMLSpec     = "umlSpec"     // current textual UML draft
	KeyCritique    = "critique"    // critic feedback on the current draft
	KeyScore       = "score"       // quality score in [0, 1]
	KeyUMLModel    = "umlModel"    // parsed structured model
	KeyDocument    = "umlDocument" // rendered PlantUML document
)

const designerInstructions = `You are an experienced software architect producing UML class models.
Emit only the model, using this exact textual form:

class Name {
  attribute: Type
  operation(arg: Type): Type
}
Name --> Other : label

Relations may use --> (association), <|-- (inheritance), *-- (composition),
o-- (aggregation) or ..> (dependency). No prose, no markdown fences.`

const designerPrompt = `Requirement:
{{.requirement}}
{{if .critique}}
Previous critique to address:
{{.critique}}
{{end}}
Produce the complete UML class model for this requirement.`

const criticInstructions = `You are a rigorous design reviewer. Point out missing classes,
wrong relations, unclear responsibilities and violations of the required
textual form. Be specific and terse.`

const criticPrompt = `Requirement:
{{.requirement}}

Candidate UML model:
{{.umlSpec}}

List the concrete defects of this model.`

const scorerInstructions = `You grade UML class models against their requirement.
Answer with a single number between 0.0 and 1.0 and nothing else.`

const scorerPrompt = `Requirement:
{{.requirement}}

UML model:
{{.umlSpec}}

Critique:
{{.critique}}

Score this model.`

// Options tune the reference workflow.
type Options struct {
	// ScoreThreshold is the convergence bar for the refinement loop.
	ScoreThreshold float64

	// MaxIterations caps refinement passes.
	MaxIterations int

	// Tools, when set, is offered to the designer agent.
	Tools tool.Provider

	// Logger receives engine and agent progress. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Build assembles the workflow around the given model client:
//
//	refine loop: designer -> critic -> scorer, exit when score >= threshold
//	finalize:    parser -> materializer
//
// The returned Planner is reusable; invoke it with Seed(requirement).
func Build(client model.Client, optFns ...func(o *Options)) (*planner.Planner, error) {
	opts := Options{
		ScoreThreshold: 0.8,
		MaxIterations:  5,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	designer := agent.NewModel("designer", client, designerPrompt, KeyUMLSpec,
		func(o *agent.ModelOptions) {
			o.Description = "Drafts a textual UML model from the requirement and prior critique"
			o.Instructions = designerInstructions
			o.Inputs = []string{KeyRequirement, KeyCritique}
			o.Tools = opts.Tools
			o.Logger = opts.Logger
		},
	)

	critic := agent.NewModel("critic", client, criticPrompt, KeyCritique,
		func(o *agent.ModelOptions) {
			o.Description = "Reviews the current draft for concrete defects"
			o.Instructions = criticInstructions
			o.Inputs = []string{KeyRequirement, KeyUMLSpec}
			o.Logger = opts.Logger
		},
	)

	scorer := agent.NewModel("scorer", client, scorerPrompt, KeyScore,
		func(o *agent.ModelOptions) {
			o.Description = "Grades the draft against the requirement"
			o.Instructions = scorerInstructions
			o.Inputs = []string{KeyRequirement, KeyUMLSpec, KeyCritique}
			o.NumberOutput = true
			o.Logger = opts.Logger
		},
	)

	refine, err := stage.NewLoop("refine",
		[]core.Agent{designer, critic, scorer},
		stage.WithMaxIterations(opts.MaxIterations),
		stage.WithExitPredicate(stage.ScoreAtLeast(KeyScore, opts.ScoreThreshold)),
		stage.WithOutputKey(KeyUMLSpec),
		stage.WithLoopLogger(opts.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("building refine loop: %w", err)
	}

	finalize := stage.NewSequential("finalize",
		[]core.Stage{
			stage.FromAgent(NewParser(opts.Logger)),
			stage.FromAgent(NewMaterializer(opts.Logger)),
		},
		stage.WithSequentialLogger(opts.Logger),
	)

	return planner.New("uml-workflow",
		[]core.Stage{refine, finalize},
		KeyDocument,
		func(o *planner.Options) {
			o.SeedKeys = []string{KeyRequirement, KeyCritique}
			o.Logger = opts.Logger
		},
	)
}

// Seed builds the initial scope for one invocation. The critique starts
// empty so the designer's first pass sees the requirement alone.
func Seed(requirement string) map[string]core.Value {
	return map[string]core.Value{
		KeyRequirement: core.Text(requirement),
		KeyCritique:    core.Text(""),
	}
}
