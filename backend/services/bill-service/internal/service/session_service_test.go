package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Minute)

	token, claims, err := tokens.GenerateToken("v1")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.Equal(t, "bill-service", parsed.Issuer)
	assert.Equal(t, "v1", parsed.PINVersion)
}

func TestTokenService_RejectsForeignAndExpiredTokens(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Minute)
	token, _, err := tokens.GenerateToken("v1")
	require.NoError(t, err)

	other := NewTokenService("another-secret", time.Minute)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tokens.ValidateToken(token)
	assert.Error(t, err)

	_, err = tokens.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestTokenService_RequiresSecret(t *testing.T) {
	_, _, err := NewTokenService("", time.Minute).GenerateToken("v1")
	assert.Error(t, err)
}

func TestSessionService_RevokeSignsOut(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessionService(NewTokenService(testSecret, time.Minute), NewMemoryRevocationList(), zaptest.NewLogger(t))

	session, err := sessions.Issue(ctx, "v1")
	require.NoError(t, err)
	_, err = sessions.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, sessions.Revoke(ctx, session.Token))
	_, err = sessions.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, sessions.Revoke(ctx, session.Token), ErrUnauthorized, "revoking twice is rejected")

	other, err := sessions.Issue(ctx, "v1")
	require.NoError(t, err)
	_, err = sessions.Authenticate(ctx, other.Token)
	assert.NoError(t, err, "other sessions stay valid")
}

func TestMemoryRevocationList_Expires(t *testing.T) {
	ctx := context.Background()
	list := NewMemoryRevocationList()
	now := time.Now()
	list.now = func() time.Time { return now }

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Minute))
	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "", time.Minute))
	require.NoError(t, list.Revoke(ctx, "jti-2", 0))
	assert.Empty(t, list.entries)
}
