// Package mcp implements tool.Provider on top of a remote MCP endpoint via
// mark3labs/mcp-go: tool discovery through tools/list and invocation through
// tools/call, over stdio, SSE or streamable HTTP transports.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpprotocol "github.com/mark3labs/mcp-go/mcp"

	"github.com/umlforge/umlforge/tool"
)

// Transport selects how the MCP server is reached.
type Transport string

const (
	// TransportStdio launches the server as a child process.
	TransportStdio Transport = "stdio"
	// TransportSSE connects to a server-sent-events endpoint.
	TransportSSE Transport = "sse"
	// TransportStreamableHTTP connects to a streamable HTTP endpoint.
	TransportStreamableHTTP Transport = "streamable-http"
)

// Config describes the MCP server to connect to.
type Config struct {
	Transport Transport
	Command   string            // stdio: executable to launch
	Args      []string          // stdio: arguments
	Env       map[string]string // stdio: extra environment
	URL       string            // sse / streamable-http: endpoint
	Headers   map[string]string // sse / streamable-http: extra headers
}

// Provider is a tool.Provider backed by one MCP server connection. It is
// created with New, which performs the initialize handshake, and must be
// closed when the workflow that owns it finishes.
type Provider struct {
	client     mcpclient.MCPClient
	serverName string
}

// New connects to the configured MCP server and performs the initialize
// handshake. The returned Provider is ready for List/Invoke.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := createClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating mcp client: %w", err)
	}

	initReq := mcpprotocol.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpprotocol.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpprotocol.Implementation{
		Name:    "umlforge",
		Version: "1.0.0",
	}

	initResult, err := client.Initialize(ctx, initReq)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mcp initialize failed: %w", err)
	}

	return &Provider{client: client, serverName: initResult.ServerInfo.Name}, nil
}

// createClient builds an mcp-go client for the configured transport.
func createClient(cfg Config) (mcpclient.MCPClient, error) {
	switch cfg.Transport {
	case TransportStdio:
		env := envMapToSlice(cfg.Env)
		return mcpclient.NewStdioMCPClient(cfg.Command, env, cfg.Args...)

	case TransportSSE:
		var opts []transport.ClientOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(cfg.Headers))
		}
		return mcpclient.NewSSEMCPClient(cfg.URL, opts...)

	case TransportStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(cfg.Headers))
		}
		return mcpclient.NewStreamableHttpClient(cfg.URL, opts...)

	default:
		return nil, fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}

// envMapToSlice converts a map to the KEY=VALUE slice format expected by exec.Cmd.
func envMapToSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// ServerName returns the name reported by the server during initialize.
func (p *Provider) ServerName() string { return p.serverName }

// List implements tool.Provider via tools/list.
func (p *Provider) List(ctx context.Context) ([]tool.Definition, error) {
	result, err := p.client.ListTools(ctx, mcpprotocol.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp tools/list failed: %w", err)
	}

	defs := make([]tool.Definition, 0, len(result.Tools))
	for i := range result.Tools {
		t := &result.Tools[i]
		defs = append(defs, tool.Definition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}
	return defs, nil
}

// schemaToMap flattens the mcp-go input schema into the generic JSON Schema
// map the rest of the module works with.
func schemaToMap(s mcpprotocol.ToolInputSchema) map[string]any {
	out := map[string]any{"type": s.Type}
	if out["type"] == "" {
		out["type"] = "object"
	}
	if len(s.Properties) > 0 {
		out["properties"] = s.Properties
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// Invoke implements tool.Provider via tools/call. A result flagged IsError
// by the server surfaces as *tool.InvocationError.
func (p *Provider) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	req := mcpprotocol.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := p.client.CallTool(ctx, req)
	if err != nil {
		return nil, &tool.InvocationError{
			Tool:    name,
			Message: err.Error(),
			Code:    "TRANSPORT_ERROR",
		}
	}

	text := joinTextContent(result.Content)
	if result.IsError {
		return nil, &tool.InvocationError{
			Tool:    name,
			Message: text,
			Code:    "EXECUTION_ERROR",
		}
	}

	return text, nil
}

// joinTextContent concatenates the text blocks of a tool result.
func joinTextContent(content []mcpprotocol.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(mcpprotocol.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close terminates the server connection.
func (p *Provider) Close() error {
	return p.client.Close()
}
