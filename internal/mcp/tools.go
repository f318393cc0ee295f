package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/service/agents"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("solvine_list_agents",
			mcplib.WithDescription(`List every visible agent: the head agent first, then user-created agents, then built-in agents.

Each name appears once. A user-created agent with the same name as a built-in
one hides the built-in agent until it is deleted.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleListAgents,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("solvine_get_agent",
			mcplib.WithDescription("Show the agent a name currently resolves to, including its tier and whether it hides a built-in agent."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("name",
				mcplib.Description("Agent name (case-insensitive)"),
				mcplib.Required(),
			),
		),
		s.handleGetAgent,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("solvine_create_agent",
			mcplib.WithDescription(`Create a user-defined agent.

Names are 1-64 characters of a-z, 0-9, '_' and '-' after lowercasing. The
head agent's name is reserved. Creating an agent with a built-in agent's name
replaces the built-in agent until the new one is deleted.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("name", mcplib.Description("Agent name"), mcplib.Required()),
			mcplib.WithString("role", mcplib.Description("What the agent does"), mcplib.Required()),
			mcplib.WithNumber("stability",
				mcplib.Description("Stability score between 0 and 1. Defaults to the server default."),
				mcplib.Min(0),
				mcplib.Max(1),
			),
			mcplib.WithString("personality", mcplib.Description("Optional free-form personality description")),
			mcplib.WithArray("skills",
				mcplib.Description("Optional list of skills"),
				mcplib.WithStringItems(),
			),
		),
		s.handleCreateAgent,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("solvine_delete_agent",
			mcplib.WithDescription("Delete a user-created agent. Built-in agents and the head agent cannot be deleted; if the agent hid a built-in agent, that agent becomes visible again."),
			mcplib.WithDestructiveHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("name", mcplib.Description("Agent name"), mcplib.Required()),
		),
		s.handleDeleteAgent,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("solvine_status",
			mcplib.WithDescription("Report how many agents are visible, their mean stability and the server uptime."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleStatus,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("solvine_query",
			mcplib.WithDescription("Send a message to an agent. When no agent is named, a built-in agent whose topic keywords appear in the message answers, otherwise the head agent."),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("message", mcplib.Description("The message to send"), mcplib.Required()),
			mcplib.WithString("agent", mcplib.Description("Optional agent name")),
		),
		s.handleQuery,
	)
}

func (s *Server) handleListAgents(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	list := s.agentSvc.List(ctx)
	return jsonResult(model.AgentListResponse{Agents: list, TotalCount: len(list)})
}

func (s *Server) handleGetAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errorResult("name is required"), nil
	}
	details, err := s.agentSvc.Details(ctx, name)
	if err != nil {
		return s.serviceErrorResult("get agent", err)
	}
	return jsonResult(details)
}

func (s *Server) handleCreateAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := request.GetArguments()

	in := agents.CreateInput{
		Name: request.GetString("name", ""),
		Role: request.GetString("role", ""),
	}
	if in.Name == "" || in.Role == "" {
		return errorResult("name and role are required"), nil
	}
	if _, ok := args["stability"]; ok {
		st := request.GetFloat("stability", -1)
		in.Stability = &st
	}
	if p, ok := args["personality"].(string); ok {
		in.Personality = &p
	}
	skills, err := skillsArg(args["skills"])
	if err != nil {
		return errorResult(err.Error()), nil
	}
	in.Skills = skills

	res, err := s.agentSvc.Create(ctx, in)
	if err != nil {
		return s.serviceErrorResult("create agent", err)
	}
	return jsonResult(model.CreateAgentResponse{
		Message:  fmt.Sprintf("Agent '%s' created successfully", res.Agent.Name),
		Agent:    res.Agent,
		Upgraded: res.Upgraded,
	})
}

func (s *Server) handleDeleteAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errorResult("name is required"), nil
	}
	res, err := s.agentSvc.Delete(ctx, name)
	if err != nil {
		return s.serviceErrorResult("delete agent", err)
	}
	return jsonResult(model.DeleteAgentResponse{
		Message:    fmt.Sprintf("Agent '%s' deleted successfully", res.Agent.Name),
		Unshadowed: res.Unshadowed,
	})
}

func (s *Server) handleStatus(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	st := s.agentSvc.Status(ctx)
	return jsonResult(model.StatusResponse{
		AgentsCount:     st.AgentsCount,
		SystemStability: st.SystemStability,
		Uptime:          registry.FormatUptime(st.Uptime),
	})
}

func (s *Server) handleQuery(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	resp, err := s.gate.Dispatch(ctx, model.QueryRequest{
		Message: request.GetString("message", ""),
		Agent:   request.GetString("agent", ""),
	})
	if err != nil {
		return s.serviceErrorResult("query", err)
	}
	return jsonResult(resp)
}

// skillsArg accepts a JSON array of strings or a comma-separated string.
func skillsArg(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return model.ParseSkills(t), nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("skills must be strings, got %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("skills must be a string or a list of strings")
	}
}
