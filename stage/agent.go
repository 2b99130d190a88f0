package stage

import (
	"context"

	"github.com/umlforge/umlforge/core"
)

// agentStage adapts a single agent to the core.Stage interface so agents and
// stages can be mixed freely inside a Sequential.
type agentStage struct {
	agent core.Agent
}

// FromAgent wraps a single agent as a stage that runs it exactly once.
func FromAgent(a core.Agent) core.Stage { return &agentStage{agent: a} }

func (s *agentStage) Name() string { return s.agent.Name() }

func (s *agentStage) RequiredKeys() []string { return s.agent.Inputs() }

func (s *agentStage) ProvidedKeys() []string { return s.agent.Outputs() }

func (s *agentStage) Run(ctx context.Context, scope *core.Scope, _ *core.Trace) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := s.agent.Run(ctx, scope); err != nil {
		return core.NewAgentError(s.agent.Name(), err)
	}
	return nil
}
