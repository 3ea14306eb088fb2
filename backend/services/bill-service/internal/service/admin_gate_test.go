package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utilitybill/backend/services/bill-service/internal/repository"
)

func TestAdminGate_StateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.getRuleErr = repository.ErrNotProvisioned
	f.store.getCredErr = repository.ErrNotProvisioned
	state, err := f.gate.State(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateDBNotProvisioned, state)

	f.store.getRuleErr = nil
	f.store.getCredErr = nil
	state, err = f.gate.State(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateNoCredential, state)

	f.withPIN(t, "1234")
	state, err = f.gate.State(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateCredentialEntryPending, state)

	session, err := f.credentials.Login(ctx, "1234")
	require.NoError(t, err)
	state, err = f.gate.State(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)

	require.NoError(t, f.sessions.Revoke(ctx, session.Token))
	state, err = f.gate.State(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, StateCredentialEntryPending, state)
}

func TestAdminGate_CredentialTableMissingOnly(t *testing.T) {
	f := newFixture(t)
	f.store.getCredErr = repository.ErrNotProvisioned

	state, err := f.gate.State(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StateDBNotProvisioned, state)
}

func TestAdminGate_StateDoesNotCountRuleFallbacks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, token := range []string{"", "garbage"} {
		_, err := f.gate.State(ctx, token)
		require.NoError(t, err)
	}
	f.store.getRuleErr = repository.ErrNotProvisioned
	state, err := f.gate.State(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, StateDBNotProvisioned, state)

	expected := `
# HELP bill_rule_default_fallbacks_total Rule reads answered with the built-in default rule
# TYPE bill_rule_default_fallbacks_total counter
bill_rule_default_fallbacks_total 0
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected), "bill_rule_default_fallbacks_total"))

	f.rules.GetRule(ctx)
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(),
		strings.NewReader(strings.Replace(expected, "total 0", "total 1", 1)), "bill_rule_default_fallbacks_total"))
}

func TestRuleService_Provisioned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.True(t, f.rules.Provisioned(ctx), "an empty table is provisioned")

	f.store.getRuleErr = errors.New("connection reset")
	assert.True(t, f.rules.Provisioned(ctx))

	f.store.getRuleErr = repository.ErrNotProvisioned
	assert.False(t, f.rules.Provisioned(ctx))
}
