package agent

import (
	"fmt"

	"github.com/umlforge/umlforge/logging"
)

// Base bundles the identity and key contract shared by concrete agent
// implementations. Embed it and supply a Run method to satisfy core.Agent.
// A Base is immutable after construction and safe for concurrent use.
type Base struct {
	name        string
	description string
	inputs      []string
	outputs     []string
	logger      logging.Logger
}

// NewBase constructs a Base with a generated description and a no-op logger.
func NewBase(name string, inputs, outputs []string) Base {
	return Base{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
		inputs:      append([]string(nil), inputs...),
		outputs:     append([]string(nil), outputs...),
		logger:      logging.NoOpLogger{},
	}
}

// Name returns the human-readable name for this agent.
func (b *Base) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *Base) Description() string { return b.description }

// Inputs returns the state keys this agent reads.
func (b *Base) Inputs() []string { return append([]string(nil), b.inputs...) }

// Outputs returns the state keys this agent writes.
func (b *Base) Outputs() []string { return append([]string(nil), b.outputs...) }

// Logger returns the logger assigned to this agent.
func (b *Base) Logger() logging.Logger { return b.logger }

func (b *Base) setDescription(desc string) { b.description = desc }

func (b *Base) setLogger(l logging.Logger) {
	if l != nil {
		b.logger = l
	}
}
