package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/service"
)

// CredentialManager owns the admin PIN.
type CredentialManager interface {
	Present(ctx context.Context) (bool, error)
	Set(ctx context.Context, pin string, creds service.AdminCredentials) error
	Login(ctx context.Context, pin string) (*service.Session, error)
}

// SessionRevoker signs admin sessions out.
type SessionRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// StateResolver evaluates the admin access state for a caller.
type StateResolver interface {
	State(ctx context.Context, token string) (service.AdminState, error)
}

// AdminHandlers serves the PIN, session and state endpoints.
type AdminHandlers struct {
	credentials CredentialManager
	sessions    SessionRevoker
	gate        StateResolver
	logger      *zap.Logger
}

// NewAdminHandlers returns handler.
func NewAdminHandlers(credentials CredentialManager, sessions SessionRevoker, gate StateResolver, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		credentials: credentials,
		sessions:    sessions,
		gate:        gate,
		logger:      logger,
	}
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// GetPIN handles GET /api/config/pin. The PIN itself is never returned.
func (h *AdminHandlers) GetPIN(w http.ResponseWriter, r *http.Request) {
	present, err := h.credentials.Present(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotProvisioned) {
			writeError(w, http.StatusNotFound, "admin_security table not found")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinSet": present})
}

// SetPIN handles POST /api/config/pin.
func (h *AdminHandlers) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.credentials.Set(r.Context(), req.PIN, adminCredentials(r)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Login handles POST /api/admin/session.
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Token     string    `json:"token"`
		TokenType string    `json:"tokenType"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.PIN = strings.TrimSpace(req.PIN)
	if req.PIN == "" {
		writeError(w, http.StatusBadRequest, "pin is required")
		return
	}

	session, err := h.credentials.Login(r.Context(), req.PIN)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Token:     session.Token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

// Logout handles DELETE /api/admin/session.
func (h *AdminHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /api/admin/state.
func (h *AdminHandlers) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.gate.State(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]service.AdminState{"state": state})
}
