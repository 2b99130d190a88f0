package core

import "context"

// Stage is one step of a workflow: either a bounded convergence loop over an
// agent pipeline or a sequential one-shot composition. Stages are immutable
// after construction and safe to reuse across invocations; all per-run state
// lives in the Scope and the Trace.
type Stage interface {
	// Name identifies the stage in reports and logs.
	Name() string

	// Run executes the stage against the shared scope, recording loop
	// outcomes in the trace.
	Run(ctx context.Context, scope *Scope, trace *Trace) error
}

// TerminationReason explains why a loop stage stopped iterating.
type TerminationReason string

const (
	// Converged means the exit predicate was satisfied after a full pass.
	Converged TerminationReason = "converged"
	// IterationCapReached means the loop ran out of iterations before the
	// exit predicate held. This is a reportable outcome, not an error.
	IterationCapReached TerminationReason = "iteration-cap-reached"
)

// LoopReport captures the outcome of one loop stage within a single
// invocation: how many full passes ran and why the loop stopped.
type LoopReport struct {
	Stage      string
	Iterations int
	Reason     TerminationReason
	OutputKey  string
}

// Trace accumulates per-invocation execution metadata as stages run. The
// planner creates one Trace per invocation, which keeps the stages
// themselves stateless.
type Trace struct {
	RunID string
	loops []LoopReport
}

// NewTrace creates an empty trace for a run.
func NewTrace(runID string) *Trace { return &Trace{RunID: runID} }

// RecordLoop appends a loop outcome to the trace.
func (t *Trace) RecordLoop(r LoopReport) { t.loops = append(t.loops, r) }

// Loops returns the recorded loop reports in execution order.
func (t *Trace) Loops() []LoopReport {
	out := make([]LoopReport, len(t.loops))
	copy(out, t.loops)
	return out
}

// WorkflowResult is the final product of one invocation: the value at the
// designated output key plus termination metadata for every loop stage that
// ran.
type WorkflowResult struct {
	RunID  string
	Output Value
	Loops  []LoopReport
}
