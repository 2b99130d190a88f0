package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umlforge/umlforge/core"
)

// fakeAgent is a scriptable core.Agent for exercising stage control flow.
type fakeAgent struct {
	name    string
	inputs  []string
	outputs []string
	calls   int
	run     func(call int, sc *core.Scope) error
}

func (f *fakeAgent) Name() string      { return f.name }
func (f *fakeAgent) Inputs() []string  { return f.inputs }
func (f *fakeAgent) Outputs() []string { return f.outputs }

func (f *fakeAgent) Run(_ context.Context, sc *core.Scope) error {
	f.calls++
	if f.run == nil {
		return nil
	}
	return f.run(f.calls, sc)
}

// scoreWriter writes the given score sequence, one value per pass.
func scoreWriter(name string, scores ...float64) *fakeAgent {
	return &fakeAgent{
		name:    name,
		inputs:  []string{"umlSpec"},
		outputs: []string{"score"},
		run: func(call int, sc *core.Scope) error {
			idx := call - 1
			if idx >= len(scores) {
				idx = len(scores) - 1
			}
			return sc.Set("score", core.Number(scores[idx]))
		},
	}
}

func designer() *fakeAgent {
	return &fakeAgent{
		name:    "Designer",
		inputs:  []string{"requirement"},
		outputs: []string{"umlSpec"},
		run: func(call int, sc *core.Scope) error {
			return sc.Set("umlSpec", core.Text("draft"))
		},
	}
}

func critic() *fakeAgent {
	return &fakeAgent{
		name:    "Critic",
		inputs:  []string{"umlSpec"},
		outputs: []string{"critique"},
		run: func(call int, sc *core.Scope) error {
			return sc.Set("critique", core.Text("needs work"))
		},
	}
}

func TestNewLoop_EmptyBody(t *testing.T) {
	_, err := NewLoop("refine", nil)
	assert.ErrorIs(t, err, core.ErrEmptyLoopBody)
}

func TestNewLoop_CapBelowOne(t *testing.T) {
	_, err := NewLoop("refine", []core.Agent{designer()}, WithMaxIterations(0))
	assert.Error(t, err)
}

func TestNewLoop_DuplicateWriter(t *testing.T) {
	a := &fakeAgent{name: "A", outputs: []string{"umlSpec"}}
	b := &fakeAgent{name: "B", outputs: []string{"umlSpec"}}

	_, err := NewLoop("refine", []core.Agent{a, b})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "both declare output key")
}

func TestNewLoop_OutputKeyMustComeFromPipeline(t *testing.T) {
	_, err := NewLoop("refine", []core.Agent{designer()}, WithOutputKey("nonexistent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not produced by any agent")
}

// Converging score sequence: 0.5, 0.6, 0.9 against a 0.8 threshold stops the
// loop after the third pass.
func TestLoop_Converges(t *testing.T) {
	d := designer()
	c := critic()
	s := scoreWriter("Scorer", 0.5, 0.6, 0.9)

	loop, err := NewLoop("refine", []core.Agent{d, c, s},
		WithMaxIterations(5),
		WithExitPredicate(ScoreAtLeast("score", 0.8)),
		WithOutputKey("umlSpec"),
	)
	require.NoError(t, err)

	sc := core.NewScope(map[string]core.Value{"requirement": core.Text("orders")})
	trace := core.NewTrace("run-1")

	require.NoError(t, loop.Run(context.Background(), sc, trace))

	loops := trace.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, 3, loops[0].Iterations)
	assert.Equal(t, core.Converged, loops[0].Reason)
	assert.Equal(t, "umlSpec", loops[0].OutputKey)

	// Every sub-agent ran once per pass.
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, 3, c.calls)
	assert.Equal(t, 3, s.calls)
}

// A score that never reaches the threshold runs the loop to its cap; that is
// a reportable outcome, not an error.
func TestLoop_IterationCapReached(t *testing.T) {
	s := scoreWriter("Scorer", 0.5)

	loop, err := NewLoop("refine", []core.Agent{designer(), s},
		WithMaxIterations(5),
		WithExitPredicate(ScoreAtLeast("score", 0.8)),
	)
	require.NoError(t, err)

	trace := core.NewTrace("run-2")
	sc := core.NewScope(map[string]core.Value{"requirement": core.Text("orders")})

	require.NoError(t, loop.Run(context.Background(), sc, trace))

	loops := trace.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, 5, loops[0].Iterations)
	assert.Equal(t, core.IterationCapReached, loops[0].Reason)
	assert.Equal(t, 5, s.calls)
}

// maxIterations == 1 degenerates to a single pass with the exit check still
// evaluated and ignored when false.
func TestLoop_SinglePassDegenerate(t *testing.T) {
	s := scoreWriter("Scorer", 0.1)

	loop, err := NewLoop("refine", []core.Agent{designer(), s},
		WithMaxIterations(1),
		WithExitPredicate(ScoreAtLeast("score", 0.8)),
	)
	require.NoError(t, err)

	trace := core.NewTrace("run-3")
	require.NoError(t, loop.Run(context.Background(), core.NewScope(nil), trace))

	loops := trace.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, 1, loops[0].Iterations)
	assert.Equal(t, core.IterationCapReached, loops[0].Reason)
}

// Convergence takes priority over the cap when both hold on the same pass.
func TestLoop_ConvergedOnFinalPass(t *testing.T) {
	s := scoreWriter("Scorer", 0.5, 0.9)

	loop, err := NewLoop("refine", []core.Agent{designer(), s},
		WithMaxIterations(2),
		WithExitPredicate(ScoreAtLeast("score", 0.8)),
	)
	require.NoError(t, err)

	trace := core.NewTrace("run-4")
	require.NoError(t, loop.Run(context.Background(), core.NewScope(nil), trace))

	loops := trace.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, 2, loops[0].Iterations)
	assert.Equal(t, core.Converged, loops[0].Reason)
}

// An unset score key evaluates through the predicate default rather than
// failing the first pass.
func TestLoop_PredicateDefaultBeforeFirstScore(t *testing.T) {
	d := designer()

	loop, err := NewLoop("refine", []core.Agent{d},
		WithMaxIterations(3),
		WithExitPredicate(ScoreAtLeast("score", 0.8)),
	)
	require.NoError(t, err)

	trace := core.NewTrace("run-5")
	require.NoError(t, loop.Run(context.Background(), core.NewScope(nil), trace))

	loops := trace.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, 3, loops[0].Iterations)
	assert.Equal(t, core.IterationCapReached, loops[0].Reason)
}

func TestLoop_AgentFailureAborts(t *testing.T) {
	cause := errors.New("generation failed")
	failing := &fakeAgent{
		name:    "Designer",
		outputs: []string{"umlSpec"},
		run:     func(int, *core.Scope) error { return cause },
	}
	downstream := critic()

	loop, err := NewLoop("refine", []core.Agent{failing, downstream}, WithMaxIterations(5))
	require.NoError(t, err)

	runErr := loop.Run(context.Background(), core.NewScope(nil), core.NewTrace("run-6"))

	var ae *core.AgentError
	require.ErrorAs(t, runErr, &ae)
	assert.Equal(t, "Designer", ae.Agent)
	assert.ErrorIs(t, runErr, cause)
	assert.Equal(t, 0, downstream.calls)
}

func TestLoop_CancelledBetweenPasses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	d := designer()
	s := &fakeAgent{
		name:    "Scorer",
		outputs: []string{"score"},
		run: func(call int, sc *core.Scope) error {
			cancel() // cancellation arrives mid-run; the pass still completes
			return sc.Set("score", core.Number(0.1))
		},
	}

	loop, err := NewLoop("refine", []core.Agent{d, s}, WithMaxIterations(5))
	require.NoError(t, err)

	runErr := loop.Run(ctx, core.NewScope(nil), core.NewTrace("run-7"))

	assert.ErrorIs(t, runErr, context.Canceled)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, 1, s.calls)
}

func TestLoop_KeyFlow(t *testing.T) {
	loop, err := NewLoop("refine", []core.Agent{designer(), critic(), scoreWriter("Scorer", 1)})
	require.NoError(t, err)

	// umlSpec is produced in-pass by Designer, so only requirement leaks out
	// as an external requirement.
	assert.Equal(t, []string{"requirement"}, loop.RequiredKeys())
	assert.ElementsMatch(t, []string{"umlSpec", "critique", "score"}, loop.ProvidedKeys())
}
