package solvine

import "time"

// Tier identifies which catalog an agent comes from.
type Tier string

const (
	TierHead    Tier = "head"
	TierDynamic Tier = "dynamic"
	TierMock    Tier = "mock"
)

// Agent is a registry agent as returned by the API.
type Agent struct {
	Name        string     `json:"name"`
	Tier        Tier       `json:"tier"`
	Role        string     `json:"role"`
	Stability   float64    `json:"stability"`
	DisplayName string     `json:"display_name,omitempty"`
	Emoji       string     `json:"emoji,omitempty"`
	Personality *string    `json:"personality,omitempty"`
	Skills      []string   `json:"skills,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// AgentDetails is an agent plus its lifecycle state.
type AgentDetails struct {
	Agent
	Status      string `json:"status"`
	ShadowsMock bool   `json:"shadows_mock,omitempty"`
}

// CreateAgentRequest describes a new DYNAMIC agent. A nil Stability lets the
// server apply its default.
type CreateAgentRequest struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Stability   *float64 `json:"stability,omitempty"`
	Personality *string  `json:"personality,omitempty"`
	Skills      []string `json:"skills,omitempty"`
}

// CreateAgentResponse is the result of CreateAgent.
type CreateAgentResponse struct {
	Message string `json:"message"`
	Agent   Agent  `json:"agent"`
	// Upgraded is true when the new agent hides a built-in agent.
	Upgraded bool `json:"upgraded"`
}

// DeleteAgentResponse is the result of DeleteAgent.
type DeleteAgentResponse struct {
	Message string `json:"message"`
	// Unshadowed is true when a built-in agent became visible again.
	Unshadowed bool `json:"unshadowed"`
}

// QueryResponse is an agent's reply.
type QueryResponse struct {
	Agent          string    `json:"agent"`
	Role           string    `json:"role"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	StabilityScore float64   `json:"stability_score"`
	IsPrimary      bool      `json:"is_primary"`
}

// StatusResponse summarizes the registry.
type StatusResponse struct {
	AgentsCount     int     `json:"agents_count"`
	SystemStability float64 `json:"system_stability"`
	Uptime          string  `json:"uptime"`
}

// HealthResponse is the result of Health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Uptime  int64  `json:"uptime_seconds"`
}

type agentList struct {
	Agents     []Agent `json:"agents"`
	TotalCount int     `json:"total_count"`
}

type queryBody struct {
	Message string `json:"message"`
	Agent   string `json:"agent,omitempty"`
}
