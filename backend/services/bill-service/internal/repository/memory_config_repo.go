package repository

import (
	"context"
	"sync"
	"time"

	"utilitybill/backend/services/bill-service/internal/models"
)

// MemoryConfigRepository keeps the singleton rows in process memory.
// It backs the "memory" storage driver used for local runs.
type MemoryConfigRepository struct {
	mu         sync.RWMutex
	rule       *models.BillingRule
	credential *models.AdminCredential
	now        func() time.Time
}

// NewMemoryConfigRepository returns an empty store, optionally seeded with a rule.
func NewMemoryConfigRepository(seed *models.BillingRule) *MemoryConfigRepository {
	repo := &MemoryConfigRepository{now: time.Now}
	if seed != nil {
		rule := *seed
		repo.rule = &rule
	}
	return repo
}

// GetRule returns a copy of the stored rule.
func (r *MemoryConfigRepository) GetRule(_ context.Context) (*models.BillingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rule == nil {
		return nil, ErrRuleNotFound
	}
	rule := *r.rule
	return &rule, nil
}

// UpsertRule overwrites the stored rule.
func (r *MemoryConfigRepository) UpsertRule(_ context.Context, rule *models.BillingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.UpdatedAt = r.now().UTC()
	stored := *rule
	r.rule = &stored
	return nil
}

// GetCredential returns a copy of the stored credential.
func (r *MemoryConfigRepository) GetCredential(_ context.Context) (*models.AdminCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.credential == nil {
		return nil, ErrCredentialNotFound
	}
	cred := *r.credential
	return &cred, nil
}

// UpsertCredential overwrites the stored credential.
func (r *MemoryConfigRepository) UpsertCredential(_ context.Context, cred *models.AdminCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred.UpdatedAt = r.now().UTC()
	stored := *cred
	r.credential = &stored
	return nil
}
