package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/service"
)

const (
	maxBodyBytes = 1 << 16

	// AdminPINHeader carries the admin PIN on write requests.
	AdminPINHeader = "x-admin-pin"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type validationResponse struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields"`
}

// writeServiceError maps service errors onto HTTP status codes. Storage
// details are logged, never returned.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if verr, ok := service.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "units must be a positive number")
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid PIN")
	case errors.Is(err, service.ErrNoCredential):
		writeError(w, http.StatusConflict, "admin PIN has not been set")
	case errors.Is(err, service.ErrNotProvisioned):
		writeError(w, http.StatusServiceUnavailable, "database tables are not provisioned")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func adminCredentials(r *http.Request) service.AdminCredentials {
	return service.AdminCredentials{
		PIN:          strings.TrimSpace(r.Header.Get(AdminPINHeader)),
		SessionToken: bearerToken(r),
	}
}
