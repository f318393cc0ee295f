package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/solvine-ai/solvine/internal/auth"
	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/service/agents"
	"github.com/solvine-ai/solvine/internal/service/dispatch"
)

// healthPingTimeout bounds the store ping behind GET /health.
const healthPingTimeout = 2 * time.Second

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	agentSvc            *agents.Service
	gate                *dispatch.Gate
	jwtMgr              *auth.JWTManager
	adminKey            *auth.AdminKey
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64

	// healthGroup collapses concurrent store pings from health probes.
	healthGroup singleflight.Group
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): JWTMgr, AdminKey. Both nil means auth is disabled.
type HandlersDeps struct {
	AgentSvc            *agents.Service
	Gate                *dispatch.Gate
	JWTMgr              *auth.JWTManager
	AdminKey            *auth.AdminKey
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		agentSvc:            d.AgentSvc,
		gate:                d.Gate,
		jwtMgr:              d.JWTMgr,
		adminKey:            d.AdminKey,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleListAgents handles GET /agents.
func (h *Handlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	list := h.agentSvc.List(r.Context())
	writeJSON(w, r, http.StatusOK, model.AgentListResponse{
		Agents:     list,
		TotalCount: len(list),
	})
}

// HandleGetAgent handles GET /agents/{name}.
func (h *Handlers) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	details, err := h.agentSvc.Details(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeServiceError(w, r, "failed to get agent", err)
		return
	}
	writeJSON(w, r, http.StatusOK, details)
}

// HandleCreateAgent handles POST /agents and POST /create_agent.
func (h *Handlers) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	res, err := h.agentSvc.Create(r.Context(), agents.CreateInput{
		Name:        req.Name,
		Role:        req.Role,
		Stability:   req.Stability,
		Personality: req.Personality,
		Skills:      req.Skills,
	})
	if err != nil {
		h.writeServiceError(w, r, "failed to create agent", err)
		return
	}

	msg := fmt.Sprintf("Agent '%s' created successfully", res.Agent.Name)
	if res.Upgraded {
		msg = fmt.Sprintf("Agent '%s' created; it replaces the built-in agent of the same name", res.Agent.Name)
	}
	writeJSON(w, r, http.StatusCreated, model.CreateAgentResponse{
		Message:  msg,
		Agent:    res.Agent,
		Upgraded: res.Upgraded,
	})
}

// HandleDeleteAgent handles DELETE /agents/{name}.
func (h *Handlers) HandleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	res, err := h.agentSvc.Delete(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeServiceError(w, r, "failed to delete agent", err)
		return
	}

	msg := fmt.Sprintf("Agent '%s' deleted successfully", res.Agent.Name)
	if res.Unshadowed {
		msg = fmt.Sprintf("Agent '%s' deleted; the built-in agent is visible again", res.Agent.Name)
	}
	writeJSON(w, r, http.StatusOK, model.DeleteAgentResponse{
		Message:    msg,
		Unshadowed: res.Unshadowed,
	})
}

// HandleQuery handles POST /query.
func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req model.QueryRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	resp, err := h.gate.Dispatch(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "failed to dispatch query", err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.agentSvc.Status(r.Context())
	writeJSON(w, r, http.StatusOK, model.StatusResponse{
		AgentsCount:     st.AgentsCount,
		SystemStability: st.SystemStability,
		Uptime:          registry.FormatUptime(st.Uptime),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	// Joiners share one ping, so it must not die with the caller that started it.
	_, err, _ := h.healthGroup.Do("store", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), healthPingTimeout)
		defer cancel()
		return nil, h.agentSvc.Ping(ctx)
	})
	if err != nil {
		h.logger.Warn("health: store ping failed", "store", h.agentSvc.StoreKind(), "error", err)
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:  status,
		Version: h.version,
		Store:   h.agentSvc.StoreKind(),
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleAuthToken handles POST /auth/token. It is only routed when an admin
// key is configured.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if !h.adminKey.Verify(req.APIKey) {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken("admin")
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	h.logger.Info("admin token issued", "remote_addr", r.RemoteAddr, "expires_at", expiresAt)
	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
