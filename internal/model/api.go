package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// NotFoundDetails is attached to NOT_FOUND errors so callers can offer
// "did you mean" suggestions.
type NotFoundDetails struct {
	Name      string   `json:"name"`
	Available []string `json:"available"`
}

// SkillList accepts either a JSON array of strings or a single
// comma-separated string.
type SkillList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *SkillList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("skills must be a string or an array of strings")
	}
	*s = ParseSkills(raw)
	return nil
}

// CreateAgentRequest is the request body for POST /agents and POST /create_agent.
type CreateAgentRequest struct {
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Stability   *float64  `json:"stability,omitempty"`
	Personality *string   `json:"personality,omitempty"`
	Skills      SkillList `json:"skills,omitempty"`
}

// CreateAgentResponse is the response for a successful create.
type CreateAgentResponse struct {
	Message  string      `json:"message"`
	Agent    AgentRecord `json:"agent"`
	Upgraded bool        `json:"upgraded"`
}

// AgentListResponse is the response for GET /agents.
type AgentListResponse struct {
	Agents     []AgentRecord `json:"agents"`
	TotalCount int           `json:"total_count"`
}

// AgentDetails is a resolved agent with its current lifecycle state.
type AgentDetails struct {
	AgentRecord
	Status string `json:"status"`
	// ShadowsMock is true when a DYNAMIC record hides a MOCK record of the
	// same name.
	ShadowsMock bool `json:"shadows_mock,omitempty"`
}

// DeleteAgentResponse is the response for DELETE /agents/{name}.
type DeleteAgentResponse struct {
	Message    string `json:"message"`
	Unshadowed bool   `json:"unshadowed"`
}

// QueryRequest is the request body for POST /query.
type QueryRequest struct {
	Message string `json:"message"`
	Agent   string `json:"agent,omitempty"`
}

// QueryResponse is a single agent reply to a dispatched query.
type QueryResponse struct {
	Agent          string    `json:"agent"`
	Role           string    `json:"role"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	StabilityScore float64   `json:"stability_score"`
	IsPrimary      bool      `json:"is_primary"`
}

// StatusResponse is the response for GET /status.
type StatusResponse struct {
	AgentsCount     int     `json:"agents_count"`
	SystemStability float64 `json:"system_stability"`
	Uptime          string  `json:"uptime"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Uptime  int64  `json:"uptime_seconds"`
}

// AuthTokenRequest is the request body for POST /auth/token.
type AuthTokenRequest struct {
	APIKey string `json:"api_key"`
}

// AuthTokenResponse is the response for POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
