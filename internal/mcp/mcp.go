// Package mcp implements the Model Context Protocol server for Solvine.
//
// The MCP server exposes the same registry operations as the HTTP API
// through MCP tools, resources and prompts, so MCP-compatible clients can
// list, inspect, create and delete agents and send them messages.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/service/agents"
	"github.com/solvine-ai/solvine/internal/service/dispatch"
)

// Server wraps the MCP server with Solvine's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	agentSvc  *agents.Service
	gate      *dispatch.Gate
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources, tools
// and prompts.
func New(agentSvc *agents.Service, gate *dispatch.Gate, version string, logger *slog.Logger) *Server {
	s := &Server{
		agentSvc: agentSvc,
		gate:     gate,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"solvine",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithInstructions("Solvine is an agent registry. Call solvine_list_agents to see who is available, "+
			"then solvine_query to talk to one. With no agent named, the message is routed by keyword and otherwise answered by the head agent."),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

// serviceErrorResult reports an expected registry error as a tool error.
// Errors that are not part of the registry contract are returned as Go
// errors so the transport reports them as failures.
func (s *Server) serviceErrorResult(op string, err error) (*mcplib.CallToolResult, error) {
	var nf *registry.NotFoundError
	switch {
	case errors.As(err, &nf):
		return errorResult(fmt.Sprintf("agent %q not found. Available agents: %s",
			nf.Name, strings.Join(nf.Visible, ", "))), nil
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, registry.ErrInvalidInput),
		errors.Is(err, registry.ErrAlreadyExists),
		errors.Is(err, registry.ErrForbidden):
		return errorResult(strings.TrimPrefix(err.Error(), "registry: ")), nil
	case errors.Is(err, dispatch.ErrBackendUnavailable):
		s.logger.Warn("mcp: dispatch backend failed", "op", op, "error", err)
		return errorResult("agent backend unavailable"), nil
	default:
		s.logger.Error("mcp: "+op, "error", err)
		return nil, fmt.Errorf("mcp: %s: %w", op, err)
	}
}
