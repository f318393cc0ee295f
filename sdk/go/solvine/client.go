package solvine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Solvine server (e.g. "http://localhost:8080").
	BaseURL string

	// APIKey is the admin key exchanged for a token before mutating calls.
	// Leave empty when the server runs with auth disabled.
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the Solvine agent registry API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL  string
	client   *http.Client
	tokenMgr *tokenManager // nil when no APIKey is configured
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty or unparseable.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("solvine: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("solvine: invalid BaseURL: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{baseURL: baseURL, client: httpClient}
	if cfg.APIKey != "" {
		c.tokenMgr = newTokenManager(baseURL, cfg.APIKey, httpClient)
	}
	return c, nil
}

// ListAgents returns every visible agent, head agent first.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp agentList
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// GetAgent resolves a single agent by name (case-insensitive).
func (c *Client) GetAgent(ctx context.Context, name string) (*AgentDetails, error) {
	var resp AgentDetails
	if err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(name), nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateAgent adds a DYNAMIC agent.
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (*CreateAgentResponse, error) {
	var resp CreateAgentResponse
	if err := c.do(ctx, http.MethodPost, "/agents", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAgent removes a DYNAMIC agent.
func (c *Client) DeleteAgent(ctx context.Context, name string) (*DeleteAgentResponse, error) {
	var resp DeleteAgentResponse
	if err := c.do(ctx, http.MethodDelete, "/agents/"+url.PathEscape(name), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query sends message to the named agent, or to the head agent when agent is empty.
func (c *Client) Query(ctx context.Context, message, agent string) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", queryBody{Message: message, Agent: agent}, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns the registry summary.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Available []string `json:"available"`
		} `json:"details"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any, authed bool) error {
	err := c.send(ctx, method, path, body, dest, authed)
	if authed && c.tokenMgr != nil && IsUnauthorized(err) {
		// The server may have restarted with a new signing key.
		c.tokenMgr.invalidate()
		err = c.send(ctx, method, path, body, dest, authed)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, dest any, authed bool) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("solvine: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("solvine: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokenMgr != nil {
		token, err := c.tokenMgr.getToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("solvine: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("solvine: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("solvine: decode response envelope: %w", err)
	}
	if envelope.Data == nil {
		return json.Unmarshal(bodyBytes, dest)
	}
	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Available = envelope.Error.Details.Available
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
