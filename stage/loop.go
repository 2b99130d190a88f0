// Package stage provides the two workflow stage types the planner composes:
// Loop, a bounded predicate-gated repetition of an ordered agent pipeline,
// and Sequential, a one-shot ordered composition of stages.
package stage

import (
	"context"
	"fmt"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
)

// Predicate decides after a full pipeline pass whether a loop has converged.
// Implementations read scope keys with tolerant defaults (NumberOr/TextOr)
// so a key the pipeline has not produced yet reads as "not converged"
// instead of failing.
type Predicate func(*core.Scope) bool

// ScoreAtLeast returns a predicate satisfied once the numeric value at key
// reaches min. An unset key evaluates as 0.
func ScoreAtLeast(key string, min float64) Predicate {
	return func(sc *core.Scope) bool {
		return sc.NumberOr(key, 0) >= min
	}
}

// Loop repeats an ordered agent pipeline until its exit predicate is
// satisfied or the iteration cap is hit.
//
// Sub-agents run in declared order within each pass because later agents
// consume the outputs earlier agents wrote in that same pass (produce →
// critique → score). That ordering is a data dependency, so a pass is never
// parallelized. The exit predicate is evaluated only after a full pass, and
// convergence takes priority over the cap when both hold on the same pass.
//
// Hitting the cap without convergence is a normal, reportable outcome, not
// an error: the loop ends with whatever scope state exists.
type Loop struct {
	name      string
	agents    []core.Agent
	exit      Predicate
	maxIters  int
	outputKey string
	logger    logging.Logger

	requires []string
	provides []string
}

// LoopOption configures a Loop at construction time.
type LoopOption func(*Loop)

// WithMaxIterations sets the iteration cap. Must be at least 1.
func WithMaxIterations(n int) LoopOption {
	return func(l *Loop) { l.maxIters = n }
}

// WithExitPredicate sets the convergence condition evaluated after each full
// pass. Without one the loop always runs to the cap.
func WithExitPredicate(p Predicate) LoopOption {
	return func(l *Loop) { l.exit = p }
}

// WithOutputKey designates the scope key republished as the loop's result.
func WithOutputKey(key string) LoopOption {
	return func(l *Loop) { l.outputKey = key }
}

// WithLoopLogger sets the logger used for per-pass progress.
func WithLoopLogger(logger logging.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop constructs a convergence loop over the given agent pipeline.
// Defaults: 10 iterations, no exit predicate, no designated output key.
//
// Construction fails with core.ErrEmptyLoopBody for an empty pipeline, for a
// cap below 1, and when two distinct agents in the pipeline declare the same
// output key (single writer per key is enforced at build time).
func NewLoop(name string, agents []core.Agent, opts ...LoopOption) (*Loop, error) {
	if len(agents) == 0 {
		return nil, core.ErrEmptyLoopBody
	}

	l := &Loop{
		name:     name,
		agents:   agents,
		maxIters: 10,
		logger:   logging.NoOpLogger{},
	}

	for _, o := range opts {
		o(l)
	}

	if l.maxIters < 1 {
		return nil, fmt.Errorf("loop %s: max iterations must be at least 1, got %d", name, l.maxIters)
	}

	if err := l.computeKeyFlow(); err != nil {
		return nil, err
	}

	return l, nil
}

// computeKeyFlow derives the loop's external key contract from its pipeline:
// required keys are agent inputs no earlier agent in the same pass produces,
// provided keys are the union of agent outputs.
func (l *Loop) computeKeyFlow() error {
	writer := map[string]string{}
	produced := map[string]bool{}
	seenRequired := map[string]bool{}

	for _, a := range l.agents {
		for _, in := range a.Inputs() {
			if !produced[in] && !seenRequired[in] {
				seenRequired[in] = true
				l.requires = append(l.requires, in)
			}
		}
		for _, out := range a.Outputs() {
			if owner, ok := writer[out]; ok && owner != a.Name() {
				return fmt.Errorf("loop %s: agents %s and %s both declare output key %q", l.name, owner, a.Name(), out)
			}
			if _, ok := writer[out]; !ok {
				writer[out] = a.Name()
				l.provides = append(l.provides, out)
			}
			produced[out] = true
		}
	}

	if l.outputKey != "" && !produced[l.outputKey] && !seenRequired[l.outputKey] {
		return fmt.Errorf("loop %s: output key %q is not produced by any agent in the pipeline", l.name, l.outputKey)
	}

	return nil
}

// Name implements core.Stage.
func (l *Loop) Name() string { return l.name }

// RequiredKeys implements core.KeyFlow.
func (l *Loop) RequiredKeys() []string { return l.requires }

// ProvidedKeys implements core.KeyFlow.
func (l *Loop) ProvidedKeys() []string { return l.provides }

// MaxIterations returns the configured iteration cap.
func (l *Loop) MaxIterations() int { return l.maxIters }

// Run implements core.Stage. Each iteration executes the full pipeline in
// declared order, then checks convergence, then the cap. Cancellation is
// honored between passes only, preserving scope-write atomicity for the
// pass in flight.
func (l *Loop) Run(ctx context.Context, scope *core.Scope, trace *core.Trace) error {
	iterations := 0
	reason := core.IterationCapReached

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.logger.Debug("loop pass starting", "stage", l.name, "iteration", iterations+1)

		for _, a := range l.agents {
			if err := a.Run(ctx, scope); err != nil {
				return core.NewAgentError(a.Name(), err)
			}
		}
		iterations++

		if l.exit != nil && l.exit(scope) {
			reason = core.Converged
			break
		}
		if iterations >= l.maxIters {
			break
		}
	}

	if l.outputKey != "" {
		// Republish the designated key as the loop's result.
		v, err := scope.Get(l.outputKey)
		if err != nil {
			return err
		}
		if err := scope.Set(l.outputKey, v); err != nil {
			return err
		}
	}

	l.logger.Info("loop finished", "stage", l.name, "iterations", iterations, "reason", string(reason))

	trace.RecordLoop(core.LoopReport{
		Stage:      l.name,
		Iterations: iterations,
		Reason:     reason,
		OutputKey:  l.outputKey,
	})

	return nil
}
