package uml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/model"
)

const draftOne = `class Library {
  name: string
}`

const draftTwo = `class Library {
  name: string
  addBook(book: Book): void
}
class Book {
  title: string
}
Library "1" --> "*" Book : contains`

func TestWorkflow_ConvergesAndMaterializes(t *testing.T) {
	client := model.NewMockClient("scripted")
	client.Script(
		draftOne, "Missing the Book class entirely.", "0.4",
		draftTwo, "Looks complete.", "0.9",
	)

	wf, err := Build(client, func(o *Options) {
		o.ScoreThreshold = 0.8
		o.MaxIterations = 5
	})
	require.NoError(t, err)

	result, err := wf.Invoke(context.Background(), Seed("a lending library that tracks books"))
	require.NoError(t, err)

	doc, ok := result.Output.AsText()
	require.True(t, ok)
	assert.Contains(t, doc, "@startuml")
	assert.Contains(t, doc, "class Library {")
	assert.Contains(t, doc, "class Book {")
	assert.Contains(t, doc, "Library --> Book : contains")
	assert.Contains(t, doc, "@enduml")

	require.Len(t, result.Loops, 1)
	assert.Equal(t, "refine", result.Loops[0].Stage)
	assert.Equal(t, 2, result.Loops[0].Iterations)
	assert.Equal(t, core.Converged, result.Loops[0].Reason)

	// two full passes, three model agents each
	assert.Equal(t, 6, client.Calls())
}

func TestWorkflow_CapReachedIsReported(t *testing.T) {
	client := model.NewMockClient("scripted")
	client.Script(
		draftOne, "Missing the Book class.", "0.3",
		draftTwo, "Still not great.", "0.5",
	)

	wf, err := Build(client, func(o *Options) {
		o.ScoreThreshold = 0.8
		o.MaxIterations = 2
	})
	require.NoError(t, err)

	result, err := wf.Invoke(context.Background(), Seed("anything"))
	require.NoError(t, err)

	require.Len(t, result.Loops, 1)
	assert.Equal(t, 2, result.Loops[0].Iterations)
	assert.Equal(t, core.IterationCapReached, result.Loops[0].Reason)

	// the document is still produced from the best draft so far
	doc, ok := result.Output.AsText()
	require.True(t, ok)
	assert.Contains(t, doc, "class Library {")
}

func TestWorkflow_UnparseableDraftFails(t *testing.T) {
	client := model.NewMockClient("scripted")
	client.Script("this is not a model at all", "critique", "0.95")

	wf, err := Build(client)
	require.NoError(t, err)

	_, err = wf.Invoke(context.Background(), Seed("anything"))
	require.Error(t, err)

	var agentErr *core.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, "parser", agentErr.Agent)
}

func TestSeed(t *testing.T) {
	seed := Seed("a requirement")

	v, ok := seed[KeyRequirement]
	require.True(t, ok)
	text, _ := v.AsText()
	assert.Equal(t, "a requirement", text)

	// critique placeholder lets the designer's first pass render
	_, ok = seed[KeyCritique]
	assert.True(t, ok)
}

func TestParseSpec(t *testing.T) {
	rec, err := ParseSpec(draftTwo)
	require.NoError(t, err)

	classes := rec["classes"].([]any)
	require.Len(t, classes, 2)

	library := classes[0].(map[string]any)
	assert.Equal(t, "Library", library["name"])
	assert.Equal(t, []any{"name: string"}, library["attributes"])
	assert.Equal(t, []any{"addBook(book: Book): void"}, library["operations"])

	relations := rec["relations"].([]any)
	require.Len(t, relations, 1)
	rel := relations[0].(map[string]any)
	assert.Equal(t, "Library", rel["from"])
	assert.Equal(t, "Book", rel["to"])
	assert.Equal(t, "association", rel["kind"])
	assert.Equal(t, "contains", rel["label"])
}

func TestParseSpec_RelationKinds(t *testing.T) {
	spec := `class A { }
class B { }
A <|-- B
A *-- B
A o-- B
A ..> B`

	rec, err := ParseSpec(spec)
	require.NoError(t, err)

	relations := rec["relations"].([]any)
	require.Len(t, relations, 4)

	kinds := make([]string, 0, 4)
	for _, r := range relations {
		kinds = append(kinds, r.(map[string]any)["kind"].(string))
	}
	assert.Equal(t, []string{"inheritance", "composition", "aggregation", "dependency"}, kinds)
}

func TestParseSpec_ToleratesFences(t *testing.T) {
	rec, err := ParseSpec("```\nclass A {\n  x: int\n}\n```")
	require.NoError(t, err)
	assert.Len(t, rec["classes"].([]any), 1)
}

func TestParseSpec_Errors(t *testing.T) {
	_, err := ParseSpec("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no classes")

	_, err = ParseSpec("class A {\n  x: int")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")

	_, err = ParseSpec("class A { }\nsome random prose here")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized construct")
}

func TestRenderPlantUML_Deterministic(t *testing.T) {
	rec, err := ParseSpec(draftTwo)
	require.NoError(t, err)

	first := RenderPlantUML(rec)
	second := RenderPlantUML(rec)
	assert.Equal(t, first, second)
}
