package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// agent-persona introduces the agent a name resolves to.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-persona",
			mcplib.WithPromptDescription("Introduce an agent's role and personality before talking to it"),
			mcplib.WithArgument("name",
				mcplib.ArgumentDescription("Agent name; the head agent when omitted"),
			),
		),
		s.handleAgentPersonaPrompt,
	)
}

func (s *Server) handleAgentPersonaPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	name := strings.TrimSpace(request.Params.Arguments["name"])
	if name == "" {
		name = s.agentSvc.HeadName()
	}

	details, err := s.agentSvc.Details(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("mcp: agent-persona: %w", err)
	}

	label := details.DisplayName
	if label == "" {
		label = details.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are talking to %s", label)
	if details.Emoji != "" {
		fmt.Fprintf(&b, " %s", details.Emoji)
	}
	fmt.Fprintf(&b, ", the %s (stability %.2f).\n", details.Role, details.Stability)
	if details.Personality != nil {
		fmt.Fprintf(&b, "\nPersonality: %s\n", *details.Personality)
	}
	if len(details.Skills) > 0 {
		fmt.Fprintf(&b, "\nSkills: %s\n", strings.Join(details.Skills, ", "))
	}
	fmt.Fprintf(&b, "\nSend messages with solvine_query using agent=%q.", details.Name)

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Persona of %s", details.Name),
		Messages: []mcplib.PromptMessage{
			{
				Role:    mcplib.RoleUser,
				Content: mcplib.TextContent{Type: "text", Text: b.String()},
			},
		},
	}, nil
}
