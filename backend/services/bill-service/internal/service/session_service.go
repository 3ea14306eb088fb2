package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RevocationList stores IDs of signed-out session tokens until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Session is an issued admin session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SessionService issues, verifies and revokes admin session tokens.
type SessionService struct {
	tokens      *TokenService
	revocations RevocationList
	logger      *zap.Logger
}

// NewSessionService builds SessionService.
func NewSessionService(tokens *TokenService, revocations RevocationList, logger *zap.Logger) *SessionService {
	return &SessionService{
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
	}
}

// Issue creates a new session for the PIN identified by pinVersion.
func (s *SessionService) Issue(_ context.Context, pinVersion string) (*Session, error) {
	token, claims, err := s.tokens.GenerateToken(pinVersion)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	s.logger.Info("admin session issued", zap.String("jti", claims.ID), zap.Time("expires_at", claims.ExpiresAt.Time))
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Authenticate returns the claims of a valid, unrevoked token.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		s.logger.Debug("admin session rejected", zap.Error(err))
		return nil, ErrUnauthorized
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Revoke signs a session out for the rest of its lifetime.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.tokens.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.logger.Info("admin session revoked", zap.String("jti", claims.ID))
	return nil
}
