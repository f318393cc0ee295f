package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/solvine-ai/solvine/internal/model"
)

const (
	agentsURI      = "solvine://agents"
	agentURIPrefix = "solvine://agents/"
)

func (s *Server) registerResources() {
	// solvine://agents: the visible agent set.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			agentsURI,
			"Visible Agents",
			mcplib.WithResourceDescription("Every agent a name currently resolves to, head agent first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAgentsResource,
	)

	// solvine://agents/{name}: one resolved agent.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			agentURIPrefix+"{name}",
			"Agent",
			mcplib.WithTemplateDescription("The agent a name resolves to"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleAgentResource,
	)
}

func (s *Server) handleAgentsResource(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	list := s.agentSvc.List(ctx)
	return jsonContents(agentsURI, model.AgentListResponse{Agents: list, TotalCount: len(list)})
}

func (s *Server) handleAgentResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	name, ok := strings.CutPrefix(uri, agentURIPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("mcp: invalid agent URI: %s", uri)
	}

	details, err := s.agentSvc.Details(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("mcp: read %s: %w", uri, err)
	}
	return jsonContents(uri, details)
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
