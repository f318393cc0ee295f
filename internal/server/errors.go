package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/solvine-ai/solvine/internal/model"
	"github.com/solvine-ai/solvine/internal/registry"
	"github.com/solvine-ai/solvine/internal/service/dispatch"
)

// writeServiceError maps registry and dispatch errors onto the API envelope.
// Unknown errors are logged and reported as a generic 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var nf *registry.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeErrorDetails(w, r, http.StatusNotFound, model.ErrCodeNotFound, publicMessage(err),
			model.NotFoundDetails{Name: nf.Name, Available: nf.Visible})
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, publicMessage(err))
	case errors.Is(err, registry.ErrInvalidName), errors.Is(err, registry.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, publicMessage(err))
	case errors.Is(err, registry.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, publicMessage(err))
	case errors.Is(err, registry.ErrForbidden):
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, publicMessage(err))
	case errors.Is(err, dispatch.ErrBackendUnavailable):
		h.logger.Warn("dispatch backend failed", "op", op, "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "agent backend unavailable")
	default:
		h.writeInternalError(w, r, op, err)
	}
}

// writeInternalError logs the cause and writes a 500 without echoing it.
func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
}

// publicMessage strips the package prefix from registry errors.
func publicMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "registry: ")
}
