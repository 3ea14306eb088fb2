package service

import (
	"context"
	"errors"
)

// AdminState is the admin screen a caller should see.
type AdminState string

const (
	StateDBNotProvisioned       AdminState = "db_not_provisioned"
	StateNoCredential           AdminState = "no_credential"
	StateCredentialEntryPending AdminState = "credential_entry_pending"
	StateUnlocked               AdminState = "unlocked"
)

// ProvisionChecker reports whether configuration storage exists.
type ProvisionChecker interface {
	Provisioned(ctx context.Context) bool
}

// AdminGate evaluates the admin access state machine for one caller.
type AdminGate struct {
	storage     ProvisionChecker
	credentials *CredentialService
}

// NewAdminGate builds AdminGate.
func NewAdminGate(storage ProvisionChecker, credentials *CredentialService) *AdminGate {
	return &AdminGate{storage: storage, credentials: credentials}
}

// State resolves the state for a caller holding token (may be empty).
func (g *AdminGate) State(ctx context.Context, token string) (AdminState, error) {
	if !g.storage.Provisioned(ctx) {
		return StateDBNotProvisioned, nil
	}

	present, err := g.credentials.Present(ctx)
	if err != nil {
		if errors.Is(err, ErrNotProvisioned) {
			return StateDBNotProvisioned, nil
		}
		return "", err
	}
	if !present {
		return StateNoCredential, nil
	}

	if token == "" {
		return StateCredentialEntryPending, nil
	}
	if _, err := g.credentials.Authenticate(ctx, token); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return StateCredentialEntryPending, nil
		}
		return "", err
	}
	return StateUnlocked, nil
}
