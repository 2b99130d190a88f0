// Package tool defines the capability an agent uses to invoke externally
// provided named operations. The engine never calls a Provider itself; it is
// handed to an agent at construction time and tool results are folded into
// the agent's own output.
package tool

import (
	"context"
	"fmt"
)

// Definition describes one invocable tool: its name, a natural language
// description shown to models, and a JSON Schema for its arguments.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Provider exposes a named set of externally invocable operations. The
// backing transport (in-process functions, a remote MCP endpoint) is
// irrelevant to callers.
type Provider interface {
	// List returns the definitions of every available tool.
	List(ctx context.Context) ([]Definition, error)

	// Invoke executes the named tool with structured arguments. Failures are
	// surfaced as *InvocationError.
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// InvocationError represents errors that occur during tool invocation.
type InvocationError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *InvocationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewInvocationError creates a new InvocationError with the specified details.
func NewInvocationError(tool, message, code string) *InvocationError {
	return &InvocationError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
