package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/metrics"
	"utilitybill/backend/services/bill-service/internal/models"
	"utilitybill/backend/services/bill-service/internal/password"
	"utilitybill/backend/services/bill-service/internal/repository"
)

// CredentialStore defines storage contract for the admin PIN.
type CredentialStore interface {
	GetCredential(ctx context.Context) (*models.AdminCredential, error)
	UpsertCredential(ctx context.Context, cred *models.AdminCredential) error
}

// AdminCredentials is what a caller presents to perform an admin write.
// A valid session token wins; otherwise the PIN is checked.
type AdminCredentials struct {
	PIN          string
	SessionToken string
}

// CredentialService owns the admin PIN: presence, set/change, verification and login.
type CredentialService struct {
	store     CredentialStore
	hasher    password.Hasher
	sessions  *SessionService
	validator *Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewCredentialService builds CredentialService.
func NewCredentialService(
	store CredentialStore,
	hasher password.Hasher,
	sessions *SessionService,
	validator *Validator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CredentialService {
	return &CredentialService{
		store:     store,
		hasher:    hasher,
		sessions:  sessions,
		validator: validator,
		metrics:   m,
		logger:    logger,
	}
}

// Present reports whether an admin PIN has been set.
func (s *CredentialService) Present(ctx context.Context) (bool, error) {
	_, err := s.credential(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoCredential):
		return false, nil
	default:
		return false, err
	}
}

// Set stores pin as the admin PIN. The first PIN may be set by anyone;
// changing an existing PIN requires valid admin credentials.
func (s *CredentialService) Set(ctx context.Context, pin string, creds AdminCredentials) error {
	err := s.set(ctx, pin, creds)
	s.metrics.PINChange(outcomeOf(err))
	return err
}

func (s *CredentialService) set(ctx context.Context, pin string, creds AdminCredentials) error {
	if err := s.validator.PIN(pin); err != nil {
		return err
	}

	present, err := s.Present(ctx)
	if err != nil {
		return err
	}
	if present {
		if err := s.Authorize(ctx, creds); err != nil {
			return err
		}
	}

	hash, err := s.hasher.Hash(pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.store.UpsertCredential(ctx, &models.AdminCredential{PINHash: hash}); err != nil {
		return storeError("save credential", err)
	}

	if present {
		s.logger.Info("admin pin changed")
	} else {
		s.logger.Info("admin pin created")
	}
	return nil
}

// VerifyPIN checks pin against the stored hash. A missing credential never verifies.
func (s *CredentialService) VerifyPIN(ctx context.Context, pin string) error {
	_, err := s.verify(ctx, pin)
	return err
}

func (s *CredentialService) verify(ctx context.Context, pin string) (*models.AdminCredential, error) {
	if pin == "" {
		return nil, ErrUnauthorized
	}
	cred, err := s.credential(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := s.hasher.Compare(cred.PINHash, pin); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("verify pin: %w", err)
	}
	return cred, nil
}

// Authenticate returns the claims of a valid session issued under the current PIN.
// Sessions issued before the PIN was changed are rejected.
func (s *CredentialService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if s.sessions == nil {
		return nil, ErrUnauthorized
	}
	claims, err := s.sessions.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	cred, err := s.credential(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(claims.PINVersion), []byte(pinVersion(cred))) != 1 {
		s.logger.Debug("admin session predates pin change", zap.String("jti", claims.ID))
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Authorize accepts a valid session token or, failing that, a correct PIN.
func (s *CredentialService) Authorize(ctx context.Context, creds AdminCredentials) error {
	if creds.SessionToken != "" {
		_, err := s.Authenticate(ctx, creds.SessionToken)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			return err
		}
	}
	return s.VerifyPIN(ctx, creds.PIN)
}

// Login exchanges the PIN for a session token.
func (s *CredentialService) Login(ctx context.Context, pin string) (*Session, error) {
	session, err := s.login(ctx, pin)
	s.metrics.AdminLogin(outcomeOf(err))
	return session, err
}

func (s *CredentialService) login(ctx context.Context, pin string) (*Session, error) {
	present, err := s.Present(ctx)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, ErrNoCredential
	}
	cred, err := s.verify(ctx, pin)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.logger.Warn("admin login rejected")
		}
		return nil, err
	}
	if s.sessions == nil {
		return nil, errors.New("login: sessions are not configured")
	}
	return s.sessions.Issue(ctx, pinVersion(cred))
}

// pinVersion changes whenever the PIN is set, since every hash carries a fresh salt.
func pinVersion(cred *models.AdminCredential) string {
	sum := sha256.Sum256([]byte(cred.PINHash))
	return hex.EncodeToString(sum[:8])
}

func (s *CredentialService) credential(ctx context.Context) (*models.AdminCredential, error) {
	cred, err := s.store.GetCredential(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, ErrNoCredential
		}
		if errors.Is(err, repository.ErrNotProvisioned) {
			return nil, storeError("load credential", err)
		}
		s.logger.Error("failed to load admin credential", zap.Error(err))
		return nil, storeError("load credential", err)
	}
	return cred, nil
}

// storeError maps repository failures onto the service taxonomy, keeping the cause.
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotProvisioned) {
		return fmt.Errorf("%s: %w", op, ErrNotProvisioned)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	if _, ok := AsValidationError(err); ok || errors.Is(err, ErrInvalidInput) {
		return metrics.OutcomeInvalid
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNoCredential):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrNotProvisioned):
		return metrics.OutcomeNotProvisioned
	default:
		return metrics.OutcomeError
	}
}
