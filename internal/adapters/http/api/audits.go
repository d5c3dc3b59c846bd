// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/veride/brandaudit/internal/adapters/repository"
	service "github.com/veride/brandaudit/internal/app"
)

// AuditsHandler handles audit submission and read requests.
type AuditsHandler struct {
	deps Dependencies
}

// NewAuditsHandler creates a new audits handler.
func NewAuditsHandler(deps Dependencies) *AuditsHandler {
	return &AuditsHandler{deps: deps}
}

// HandleSubmit handles POST /audits requests.
func (h *AuditsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if strings.TrimSpace(req.Handle) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing handle"))
		return
	}

	audit, created, err := h.deps.Submit(r.Context(), req.Handle, req.Language)
	switch {
	case errors.Is(err, service.ErrInvalidHandle):
		writeError(w, http.StatusBadRequest, "invalid_handle", err)
		return
	case errors.Is(err, service.ErrAlreadyRunning):
		// Conflict, but the caller gets the audit that covers the
		// submission so it can start polling immediately.
		writeJSON(w, http.StatusConflict, toAuditResponse(audit))
		return
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	if created {
		writeJSON(w, http.StatusCreated, toAuditResponse(audit))
		return
	}
	writeJSON(w, http.StatusOK, toAuditResponse(audit))
}

// HandleGet handles GET /audits/{id} requests.
func (h *AuditsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/audits/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	audit, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditResponse(audit))
}

// HandleLookup handles GET /audits/lookup?handle= requests.
func (h *AuditsHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	handle := r.URL.Query().Get("handle")
	if handle == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing handle parameter"))
		return
	}

	audit, err := h.deps.Lookup(r.Context(), handle)
	switch {
	case errors.Is(err, service.ErrInvalidHandle):
		writeError(w, http.StatusBadRequest, "invalid_handle", err)
		return
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditResponse(audit))
}
