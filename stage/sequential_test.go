package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umlforge/umlforge/core"
)

func TestSequential_RunsEachChildOnceInOrder(t *testing.T) {
	var order []string
	mk := func(name string) *fakeAgent {
		return &fakeAgent{
			name: name,
			run: func(int, *core.Scope) error {
				order = append(order, name)
				return nil
			},
		}
	}
	a, b, c := mk("A"), mk("B"), mk("C")

	seq := NewSequential("finalize", []core.Stage{FromAgent(a), FromAgent(b), FromAgent(c)})

	require.NoError(t, seq.Run(context.Background(), core.NewScope(nil), core.NewTrace("run-1")))

	assert.Equal(t, []string{"A", "B", "C"}, order)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestSequential_StopsOnFirstError(t *testing.T) {
	cause := errors.New("parse failed")
	failing := &fakeAgent{name: "Parser", run: func(int, *core.Scope) error { return cause }}
	after := &fakeAgent{name: "Materializer"}

	seq := NewSequential("finalize", []core.Stage{FromAgent(failing), FromAgent(after)})

	err := seq.Run(context.Background(), core.NewScope(nil), core.NewTrace("run-2"))

	var ae *core.AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Parser", ae.Agent)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, after.calls)
}

func TestSequential_PropagatesScopeBetweenChildren(t *testing.T) {
	producer := &fakeAgent{
		name:    "Parser",
		outputs: []string{"umlModel"},
		run: func(_ int, sc *core.Scope) error {
			return sc.Set("umlModel", core.Record(map[string]any{"classes": 2.0}))
		},
	}

	var seen map[string]any
	consumer := &fakeAgent{
		name:   "Materializer",
		inputs: []string{"umlModel"},
		run: func(_ int, sc *core.Scope) error {
			v, err := sc.Get("umlModel")
			if err != nil {
				return err
			}
			seen, _ = v.AsRecord()
			return nil
		},
	}

	seq := NewSequential("finalize", []core.Stage{FromAgent(producer), FromAgent(consumer)})

	require.NoError(t, seq.Run(context.Background(), core.NewScope(nil), core.NewTrace("run-3")))
	assert.Equal(t, 2.0, seen["classes"])
}

func TestSequential_KeyFlowAcrossChildren(t *testing.T) {
	parser := &fakeAgent{name: "Parser", inputs: []string{"umlSpec"}, outputs: []string{"umlModel"}}
	materializer := &fakeAgent{name: "Materializer", inputs: []string{"umlModel", "score"}, outputs: []string{"umlDocument"}}

	seq := NewSequential("finalize", []core.Stage{FromAgent(parser), FromAgent(materializer)})

	// umlModel is produced internally; umlSpec and score come from outside.
	assert.ElementsMatch(t, []string{"umlSpec", "score"}, seq.RequiredKeys())
	assert.ElementsMatch(t, []string{"umlModel", "umlDocument"}, seq.ProvidedKeys())
}

func TestSequential_NestedLoopRecordsTrace(t *testing.T) {
	s := scoreWriter("Scorer", 0.9)
	loop, err := NewLoop("refine", []core.Agent{designer(), s},
		WithMaxIterations(3),
		WithExitPredicate(ScoreAtLeast("score", 0.8)),
	)
	require.NoError(t, err)

	seq := NewSequential("workflow", []core.Stage{loop, FromAgent(critic())})

	trace := core.NewTrace("run-4")
	require.NoError(t, seq.Run(context.Background(), core.NewScope(nil), trace))

	loops := trace.Loops()
	require.Len(t, loops, 1)
	assert.Equal(t, "refine", loops[0].Stage)
	assert.Equal(t, 1, loops[0].Iterations)
	assert.Equal(t, core.Converged, loops[0].Reason)
}
