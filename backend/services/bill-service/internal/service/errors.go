package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput is returned for a unit count that is not a positive number.
	ErrInvalidInput = errors.New("service: units must be a positive number")
	// ErrUnauthorized is returned for a missing or incorrect PIN or session.
	ErrUnauthorized = errors.New("service: invalid admin credentials")
	// ErrNoCredential is returned when an admin session is requested before a PIN exists.
	ErrNoCredential = errors.New("service: admin pin not set")
	// ErrStorage wraps connectivity and query failures of the config store.
	ErrStorage = errors.New("service: storage failure")
	// ErrNotProvisioned is returned when the config tables do not exist.
	ErrNotProvisioned = errors.New("service: storage not provisioned")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every offending field of a rejected rule or PIN.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
