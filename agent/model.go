package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/internal/util"
	"github.com/umlforge/umlforge/logging"
	"github.com/umlforge/umlforge/model"
	"github.com/umlforge/umlforge/tool"
)

// ModelOptions configures a Model agent instance.
//
// Use functional options with NewModel to override defaults.
type ModelOptions struct {
	Description   string
	Instructions  string        // system instruction template
	Inputs        []string      // state keys the prompt template reads
	NumberOutput  bool          // parse the final text as a number before writing
	Tools         tool.Provider // optional tool capability
	MaxToolRounds int           // cap on tool-calling round trips per run
	Logger        logging.Logger
}

// Model drives a language model through one run: it renders a prompt template
// against the current state, requests a completion, optionally serves tool
// calls, and writes the final answer under its single output key.
//
// The agent holds no state between runs; everything it reads and writes goes
// through the Scope it is handed.
type Model struct {
	Base
	client        model.Client
	instructions  string
	prompt        string
	outputKey     string
	numberOutput  bool
	tools         tool.Provider
	maxToolRounds int
}

// NewModel creates a model-backed agent.
//
// The prompt is a text/template rendered against the state snapshot, so
// {{.requirement}} or {{.critique}} pull current values. Every key the
// template references must be listed in Inputs; the engine validates wiring
// against that list, and a referenced key missing from the state fails the
// run.
//
// Example:
//
//	critic := agent.NewModel("critic", client,
//	  "Critique this UML spec:\n{{.umlSpec}}",
//	  "critique",
//	  func(o *agent.ModelOptions) {
//	    o.Instructions = "You are a rigorous software architect."
//	    o.Inputs = []string{"umlSpec"}
//	  },
//	)
func NewModel(name string, client model.Client, prompt, outputKey string, optFns ...func(o *ModelOptions)) *Model {
	opts := ModelOptions{
		MaxToolRounds: 5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	base := NewBase(name, opts.Inputs, []string{outputKey})
	if opts.Description != "" {
		base.setDescription(opts.Description)
	}
	base.setLogger(opts.Logger)

	return &Model{
		Base:          base,
		client:        client,
		instructions:  opts.Instructions,
		prompt:        prompt,
		outputKey:     outputKey,
		numberOutput:  opts.NumberOutput,
		tools:         opts.Tools,
		maxToolRounds: opts.MaxToolRounds,
	}
}

// Run implements core.Agent.
func (a *Model) Run(ctx context.Context, sc *core.Scope) error {
	state := snapshotNative(sc)

	instructions, err := util.RenderTemplate(a.instructions, state)
	if err != nil {
		return fmt.Errorf("rendering instructions: %w", err)
	}
	prompt, err := util.RenderTemplate(a.prompt, state)
	if err != nil {
		return fmt.Errorf("rendering prompt: %w", err)
	}

	req := model.Request{
		Instructions: instructions,
		Messages:     []model.Message{model.UserMessage(prompt)},
	}

	if a.tools != nil {
		defs, err := a.tools.List(ctx)
		if err != nil {
			return fmt.Errorf("listing tools: %w", err)
		}
		for _, d := range defs {
			req.Tools = append(req.Tools, model.ToolDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			})
		}
	}

	text, err := a.complete(ctx, req)
	if err != nil {
		return err
	}

	a.Logger().Debug("agent.model.complete",
		"agent", a.Name(),
		"output_key", a.outputKey,
		"chars", len(text),
	)

	if a.numberOutput {
		n, err := parseNumber(text)
		if err != nil {
			return fmt.Errorf("agent %s: %w", a.Name(), err)
		}
		return sc.Set(a.outputKey, core.Number(n))
	}

	return sc.Set(a.outputKey, core.Text(text))
}

// complete runs the completion loop, serving tool calls until the model
// produces plain text or the round cap is reached. A failed tool invocation
// is reported back to the model as an error result rather than aborting the
// run; the model's eventual text answer carries whatever it makes of it.
func (a *Model) complete(ctx context.Context, req model.Request) (string, error) {
	for round := 0; ; round++ {
		resp, err := a.client.Complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("model completion failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 || a.tools == nil {
			return resp.Text, nil
		}
		if round >= a.maxToolRounds {
			a.Logger().Warn("agent.model.tool_rounds_exhausted",
				"agent", a.Name(),
				"rounds", round,
			)
			return resp.Text, nil
		}

		req.Messages = append(req.Messages, model.Message{
			Role:      "assistant",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]model.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, a.serveToolCall(ctx, call))
		}
		req.Messages = append(req.Messages, model.Message{
			Role:        "tool",
			ToolResults: results,
		})
	}
}

// serveToolCall invokes one requested tool and folds any failure into an
// error-flagged result for the model.
func (a *Model) serveToolCall(ctx context.Context, call model.ToolCall) model.ToolResult {
	args := make(map[string]any)
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			a.Logger().Warn("agent.model.tool_args_invalid",
				"agent", a.Name(),
				"tool", call.Name,
				"error", err.Error(),
			)
			return model.ToolResult{
				CallID:  call.ID,
				Content: fmt.Sprintf("invalid tool arguments: %v", err),
				IsError: true,
			}
		}
	}

	result, err := a.tools.Invoke(ctx, call.Name, args)
	if err != nil {
		a.Logger().Warn("agent.model.tool_failed",
			"agent", a.Name(),
			"tool", call.Name,
			"error", err.Error(),
		)
		return model.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("tool %s failed: %v", call.Name, err),
			IsError: true,
		}
	}

	return model.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprint(result),
	}
}

// snapshotNative flattens the state into plain Go values for templating.
func snapshotNative(sc *core.Scope) map[string]any {
	snap := sc.Snapshot()
	out := make(map[string]any, len(snap))
	for k, v := range snap {
		out[k] = v.Native()
	}
	return out
}

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// parseNumber extracts a numeric value from model output. The whole trimmed
// text is tried first so "0.85" parses exactly; otherwise the first numeric
// token is used, tolerating answers like "Score: 0.85".
func parseNumber(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n, nil
	}
	if match := numberPattern.FindString(trimmed); match != "" {
		return strconv.ParseFloat(match, 64)
	}
	return 0, fmt.Errorf("no numeric value in model output %q", truncate(trimmed, 80))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
