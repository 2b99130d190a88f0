package stage

import (
	"context"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
)

// Sequential runs a fixed ordered list of stages exactly once each,
// propagating the shared scope. It has no predicate and no repetition; the
// first error stops execution immediately. Use it to chain one-shot
// post-processing (a parsing step, then a materialization step) after a
// loop converges.
type Sequential struct {
	name     string
	children []core.Stage
	logger   logging.Logger

	requires []string
	provides []string
}

// SequentialOption configures a Sequential at construction time.
type SequentialOption func(*Sequential)

// WithSequentialLogger sets the logger used for per-step progress.
func WithSequentialLogger(logger logging.Logger) SequentialOption {
	return func(s *Sequential) { s.logger = logger }
}

// NewSequential composes the given stages into a one-shot ordered pipeline.
// Single agents join a sequence via FromAgent.
func NewSequential(name string, children []core.Stage, opts ...SequentialOption) *Sequential {
	s := &Sequential{
		name:     name,
		children: children,
		logger:   logging.NoOpLogger{},
	}

	for _, o := range opts {
		o(s)
	}

	s.computeKeyFlow()

	return s
}

func (s *Sequential) computeKeyFlow() {
	produced := map[string]bool{}
	seenRequired := map[string]bool{}

	for _, child := range s.children {
		flow, ok := child.(core.KeyFlow)
		if !ok {
			continue
		}
		for _, in := range flow.RequiredKeys() {
			if !produced[in] && !seenRequired[in] {
				seenRequired[in] = true
				s.requires = append(s.requires, in)
			}
		}
		for _, out := range flow.ProvidedKeys() {
			if !produced[out] {
				produced[out] = true
				s.provides = append(s.provides, out)
			}
		}
	}
}

// Name implements core.Stage.
func (s *Sequential) Name() string { return s.name }

// RequiredKeys implements core.KeyFlow.
func (s *Sequential) RequiredKeys() []string { return s.requires }

// ProvidedKeys implements core.KeyFlow.
func (s *Sequential) ProvidedKeys() []string { return s.provides }

// Run implements core.Stage. Children execute in declared order against the
// same scope; an error from any child propagates immediately and later
// children never start.
func (s *Sequential) Run(ctx context.Context, scope *core.Scope, trace *core.Trace) error {
	for _, child := range s.children {
		s.logger.Debug("sequential step starting", "stage", s.name, "step", child.Name())
		if err := child.Run(ctx, scope, trace); err != nil {
			return err
		}
	}
	return nil
}
