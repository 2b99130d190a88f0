package agent

import (
	"context"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
)

// FuncOptions configure a Func agent.
type FuncOptions struct {
	Description string
	Logger      logging.Logger
}

// Func wraps a plain Go function as a core.Agent. It is the building block
// for deterministic workflow steps (parsers, materializers) and for test
// doubles where model calls would be noise.
type Func struct {
	Base
	fn func(ctx context.Context, sc *core.Scope) error
}

// NewFunc creates a function-backed agent. Inputs and outputs declare the
// state keys fn reads and writes; the engine validates wiring against them.
func NewFunc(
	name string,
	inputs, outputs []string,
	fn func(ctx context.Context, sc *core.Scope) error,
	optFns ...func(o *FuncOptions),
) *Func {
	opts := FuncOptions{}
	for _, optFn := range optFns {
		optFn(&opts)
	}

	base := NewBase(name, inputs, outputs)
	if opts.Description != "" {
		base.setDescription(opts.Description)
	}
	base.setLogger(opts.Logger)

	return &Func{Base: base, fn: fn}
}

// Run implements core.Agent.
func (a *Func) Run(ctx context.Context, sc *core.Scope) error {
	return a.fn(ctx, sc)
}
