// Package model defines the provider-neutral completion capability agents
// are constructed with. The engine itself never imports a provider SDK; it
// only requires that a handle supports Complete(prompt state) -> text.
// Concrete adapters live in the anthropic and openai subpackages.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON string of arguments
}

// ToolResult carries the outcome of a tool invocation back to the model.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one turn of the prompt state handed to Complete. Role is
// "user", "assistant" or "tool"; assistant turns may carry tool calls and
// tool turns carry the matching results.
type Message struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// UserMessage builds a plain user turn.
func UserMessage(text string) Message { return Message{Role: "user", Text: text} }

// Request captures the normalized prompt state for one completion.
type Request struct {
	Instructions string           `json:"instructions"` // System instructions for the model
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion for a request. A non-empty ToolCalls
// slice means the model wants tools invoked before it can finish.
type Response struct {
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Client is the minimal completion capability required to construct a model
// agent. Complete blocks until the provider answers; any suspension inside
// is opaque to the orchestration engine.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockClient is a lightweight in-memory Client useful for tests & examples.
// Canned responses are matched by substring against the last user message;
// Script supplies per-call responses in order, taking priority over canned
// matches.
type MockClient struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	script    []string
	calls     int
}

// NewMockClient constructs a MockClient with basic tool support enabled.
func NewMockClient(name string) *MockClient {
	return &MockClient{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for prompts containing match.
func (m *MockClient) AddResponse(match, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[match] = response
}

// Script queues responses returned one per call, in order. The last entry
// repeats once the script is exhausted.
func (m *MockClient) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// Calls returns how many completions have been served.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.script) > 0 {
		idx := m.calls - 1
		if idx >= len(m.script) {
			idx = len(m.script) - 1
		}
		return &Response{Text: m.script[idx], FinishReason: "stop"}, nil
	}

	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Text
			break
		}
	}

	for match, response := range m.responses {
		if strings.Contains(prompt, match) {
			return &Response{Text: response, FinishReason: "stop"}, nil
		}
	}

	return &Response{Text: fmt.Sprintf("Mock response to: %s", prompt), FinishReason: "stop"}, nil
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
