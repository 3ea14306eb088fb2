package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"utilitybill/backend/services/bill-service/internal/metrics"
	"utilitybill/backend/services/bill-service/internal/models"
	"utilitybill/backend/services/bill-service/internal/password"
	"utilitybill/backend/services/bill-service/internal/repository"
)

const testSecret = "test-secret"

// stubStore wraps the memory repository with error injection and write counting.
type stubStore struct {
	*repository.MemoryConfigRepository
	getRuleErr    error
	upsertRuleErr error
	getCredErr    error
	upsertCredErr error
	ruleWrites    int
	credWrites    int
}

func newStubStore() *stubStore {
	return &stubStore{MemoryConfigRepository: repository.NewMemoryConfigRepository(nil)}
}

func (s *stubStore) GetRule(ctx context.Context) (*models.BillingRule, error) {
	if s.getRuleErr != nil {
		return nil, s.getRuleErr
	}
	return s.MemoryConfigRepository.GetRule(ctx)
}

func (s *stubStore) UpsertRule(ctx context.Context, rule *models.BillingRule) error {
	if s.upsertRuleErr != nil {
		return s.upsertRuleErr
	}
	s.ruleWrites++
	return s.MemoryConfigRepository.UpsertRule(ctx, rule)
}

func (s *stubStore) GetCredential(ctx context.Context) (*models.AdminCredential, error) {
	if s.getCredErr != nil {
		return nil, s.getCredErr
	}
	return s.MemoryConfigRepository.GetCredential(ctx)
}

func (s *stubStore) UpsertCredential(ctx context.Context, cred *models.AdminCredential) error {
	if s.upsertCredErr != nil {
		return s.upsertCredErr
	}
	s.credWrites++
	return s.MemoryConfigRepository.UpsertCredential(ctx, cred)
}

type recordingListener struct {
	rules []models.BillingRule
}

func (l *recordingListener) RuleUpdated(rule models.BillingRule) {
	l.rules = append(l.rules, rule)
}

type fixture struct {
	store       *stubStore
	tokens      *TokenService
	revocations *MemoryRevocationList
	sessions    *SessionService
	credentials *CredentialService
	rules       *RuleService
	bills       *BillService
	gate        *AdminGate
	listener    *recordingListener
	metrics     *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := newStubStore()
	m := metrics.New()
	validator := NewValidator()
	tokens := NewTokenService(testSecret, 15*time.Minute)
	revocations := NewMemoryRevocationList()
	sessions := NewSessionService(tokens, revocations, logger)
	credentials := NewCredentialService(store, password.NewBcryptHasher(bcrypt.MinCost), sessions, validator, m, logger)
	listener := &recordingListener{}
	rules := NewRuleService(store, credentials, validator, listener, m, logger)

	return &fixture{
		store:       store,
		tokens:      tokens,
		revocations: revocations,
		sessions:    sessions,
		credentials: credentials,
		rules:       rules,
		bills:       NewBillService(rules, m, logger),
		gate:        NewAdminGate(rules, credentials),
		listener:    listener,
		metrics:     m,
	}
}

// withPIN stores pin as the admin credential.
func (f *fixture) withPIN(t *testing.T, pin string) *fixture {
	t.Helper()
	if err := f.credentials.Set(context.Background(), pin, AdminCredentials{}); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	return f
}
