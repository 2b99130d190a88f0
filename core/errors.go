package core

import (
	"errors"
	"fmt"
)

// ErrEmptyLoopBody is returned when a loop stage is constructed without agents.
var ErrEmptyLoopBody = errors.New("loop stage requires at least one agent")

// MissingKeyError reports a read of a scope key that was never written. It is
// a wiring error: either the workflow seed or an earlier stage should have
// produced the key.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("scope key %q has not been written", e.Key)
}

// TypeMismatchError reports an attempt to overwrite a scope key with a value
// of a different kind. Key types are fixed for the lifetime of a Scope.
type TypeMismatchError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("scope key %q holds %s, cannot overwrite with %s", e.Key, e.Want, e.Got)
}

// AgentError wraps an unrecoverable failure inside an agent's Run. The engine
// never retries: the error aborts the whole workflow invocation and carries
// the agent name for diagnostics.
type AgentError struct {
	Agent string
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Agent, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *AgentError) Unwrap() error { return e.Err }

// NewAgentError wraps err as an AgentError unless it already is one, so
// nested composites keep the innermost failing agent's name.
func NewAgentError(agent string, err error) error {
	var ae *AgentError
	if errors.As(err, &ae) {
		return err
	}
	return &AgentError{Agent: agent, Err: err}
}
