// Package planner composes stages into one workflow and drives execution
// start to finish. A Planner is built once with an immutable stage order,
// validated statically, and may then be invoked many times with independent
// scopes.
package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
)

// WiringError reports a build-time defect in the workflow topology: an agent
// reads a key no earlier stage (or the seed) provides, or two stages claim
// the same output key.
type WiringError struct {
	Stage  string
	Key    string
	Reason string
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("workflow wiring: stage %s, key %q: %s", e.Stage, e.Key, e.Reason)
}

// Planner is the top-level workflow: an ordered stage list plus the scope
// key holding the final artifact. The topology is immutable after New;
// invocations are independent and leave no state behind on the Planner, so
// concurrent Invoke calls with distinct scopes are safe.
type Planner struct {
	name      string
	stages    []core.Stage
	outputKey string
	seedKeys  []string
	logger    logging.Logger
}

// Options configures a Planner at build time.
type Options struct {
	// SeedKeys declares the keys every initial scope is expected to carry.
	// The static wiring check treats them as available before the first
	// stage runs.
	SeedKeys []string

	// Logger receives per-stage progress. Defaults to NoOpLogger.
	Logger logging.Logger
}

// New builds a workflow from the ordered stage list. Stages run strictly in
// order: a later stage never starts before an earlier one fully completes.
// This is a single sequential composition, not a DAG scheduler.
//
// New runs the static wiring check once: every key a stage requires must be
// provided by the seed or an earlier stage, no two stages may provide the
// same key (single writer per key; seeded placeholder keys may be filled in
// by their one providing stage), and the final output key must be provided
// by some stage or the seed.
func New(name string, stages []core.Stage, outputKey string, optFns ...func(o *Options)) (*Planner, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(stages) == 0 {
		return nil, fmt.Errorf("workflow %s: at least one stage is required", name)
	}
	if outputKey == "" {
		return nil, fmt.Errorf("workflow %s: output key is required", name)
	}

	p := &Planner{
		name:      name,
		stages:    stages,
		outputKey: outputKey,
		seedKeys:  opts.SeedKeys,
		logger:    opts.Logger,
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// validate walks the stage list in execution order simulating key
// availability, so a wiring defect surfaces at build time instead of as a
// MissingKeyError halfway through an invocation.
func (p *Planner) validate() error {
	available := map[string]bool{}
	for _, k := range p.seedKeys {
		available[k] = true
	}

	provider := map[string]string{}

	for _, st := range p.stages {
		flow, ok := st.(core.KeyFlow)
		if !ok {
			continue
		}
		for _, k := range flow.RequiredKeys() {
			if !available[k] {
				return &WiringError{Stage: st.Name(), Key: k, Reason: "required key is not provided by the seed or any earlier stage"}
			}
		}
		for _, k := range flow.ProvidedKeys() {
			if owner, claimed := provider[k]; claimed {
				return &WiringError{Stage: st.Name(), Key: k, Reason: fmt.Sprintf("already provided by stage %s", owner)}
			}
			provider[k] = st.Name()
			available[k] = true
		}
	}

	if !available[p.outputKey] {
		return &WiringError{Stage: p.name, Key: p.outputKey, Reason: "final output key is not provided by the seed or any stage"}
	}

	return nil
}

// Name returns the workflow name.
func (p *Planner) Name() string { return p.name }

// OutputKey returns the scope key holding the final artifact.
func (p *Planner) OutputKey() string { return p.outputKey }

// Invoke runs the workflow synchronously against a fresh scope built from
// the seed mapping. The caller blocks until the result is produced or a
// failure propagates; hard errors (missing keys, agent failures) abort the
// invocation, while a loop hitting its cap without converging is reported in
// the result rather than raised.
//
// Cancel the context to abort a long-running workflow; the engine checks it
// between stages and between loop passes, never mid agent-pass.
func (p *Planner) Invoke(ctx context.Context, seed map[string]core.Value) (*core.WorkflowResult, error) {
	scope := core.NewScope(seed)
	runID := uuid.NewString()
	trace := core.NewTrace(runID)

	p.logger.Info("workflow starting", "workflow", p.name, "run_id", runID)

	for _, st := range p.stages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		p.logger.Debug("stage starting", "workflow", p.name, "run_id", runID, "stage", st.Name())

		if err := st.Run(ctx, scope, trace); err != nil {
			p.logger.Error("stage failed", "workflow", p.name, "run_id", runID, "stage", st.Name(), "error", err)
			return nil, err
		}
	}

	output, err := scope.Get(p.outputKey)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: reading output key: %w", p.name, err)
	}

	p.logger.Info("workflow finished", "workflow", p.name, "run_id", runID)

	return &core.WorkflowResult{
		RunID:  runID,
		Output: output,
		Loops:  trace.Loops(),
	}, nil
}
