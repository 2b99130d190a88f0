package core

import "context"

// Agent is a stateless unit of work: it reads its declared input keys from
// the scope and writes its declared output keys back. Agents are constructed
// once at workflow-build time and reused across iterations and invocations.
//
// Implementations must:
//   - Respect context cancellation on blocking work
//   - Only write keys listed in Outputs (the planner enforces a single
//     writer per key at build time)
//   - Surface unrecoverable failures as *AgentError; retry policy, if any,
//     lives inside the agent, never in the engine
type Agent interface {
	// Name identifies the agent in errors, logs and reports.
	Name() string

	// Inputs lists the scope keys the agent reads. Used by the planner's
	// static wiring check.
	Inputs() []string

	// Outputs lists the scope keys the agent writes.
	Outputs() []string

	// Run performs the agent's work against the shared scope.
	Run(ctx context.Context, scope *Scope) error
}

// KeyFlow exposes the scope keys a stage consumes and produces so the
// planner can validate wiring once at build time instead of failing at
// invocation time.
type KeyFlow interface {
	// RequiredKeys are keys that must exist before the stage runs.
	RequiredKeys() []string

	// ProvidedKeys are keys the stage guarantees to have written when it
	// completes.
	ProvidedKeys() []string
}
