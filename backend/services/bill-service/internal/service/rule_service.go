package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/metrics"
	"utilitybill/backend/services/bill-service/internal/models"
	"utilitybill/backend/services/bill-service/internal/repository"
)

// RuleStore defines storage contract for the billing rule.
type RuleStore interface {
	GetRule(ctx context.Context) (*models.BillingRule, error)
	UpsertRule(ctx context.Context, rule *models.BillingRule) error
}

// Authorizer decides whether admin credentials permit a write.
type Authorizer interface {
	Authorize(ctx context.Context, creds AdminCredentials) error
}

// RuleListener is notified after a rule has been stored.
type RuleListener interface {
	RuleUpdated(rule models.BillingRule)
}

// RuleLookup is the result of reading the active rule.
// Default is set when the built-in rule was served instead of a stored one.
type RuleLookup struct {
	Rule         models.BillingRule
	Default      bool
	TableMissing bool
}

// RuleService reads and writes the singleton billing rule.
type RuleService struct {
	store      RuleStore
	authorizer Authorizer
	validator  *Validator
	listener   RuleListener
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewRuleService builds RuleService. listener may be nil.
func NewRuleService(
	store RuleStore,
	authorizer Authorizer,
	validator *Validator,
	listener RuleListener,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RuleService {
	return &RuleService{
		store:      store,
		authorizer: authorizer,
		validator:  validator,
		listener:   listener,
		metrics:    m,
		logger:     logger,
	}
}

// GetRule returns the stored rule, or the default rule when none can be read.
// It never fails.
func (s *RuleService) GetRule(ctx context.Context) RuleLookup {
	rule, err := s.store.GetRule(ctx)
	if err == nil {
		return RuleLookup{Rule: *rule}
	}

	lookup := RuleLookup{Rule: models.DefaultBillingRule(), Default: true}
	switch {
	case errors.Is(err, repository.ErrRuleNotFound):
		s.logger.Info("no billing rule stored, serving default")
	case errors.Is(err, repository.ErrNotProvisioned):
		lookup.TableMissing = true
		s.logger.Warn("configuration table missing, serving default rule")
	default:
		s.logger.Error("failed to load billing rule, serving default", zap.Error(err))
	}
	s.metrics.RuleFallback()
	return lookup
}

// Provisioned reports whether the configuration storage exists. Unlike GetRule
// it neither logs nor counts a fallback.
func (s *RuleService) Provisioned(ctx context.Context) bool {
	_, err := s.store.GetRule(ctx)
	return !errors.Is(err, repository.ErrNotProvisioned)
}

// UpdateRule validates, authorizes and stores candidate. Invalid or
// unauthorized requests never reach storage. Concurrent updates are last-writer-wins.
func (s *RuleService) UpdateRule(ctx context.Context, candidate models.BillingRule, creds AdminCredentials) (*models.BillingRule, error) {
	rule, err := s.updateRule(ctx, candidate, creds)
	s.metrics.RuleUpdate(outcomeOf(err))
	return rule, err
}

func (s *RuleService) updateRule(ctx context.Context, candidate models.BillingRule, creds AdminCredentials) (*models.BillingRule, error) {
	if err := s.validator.Rule(candidate); err != nil {
		return nil, err
	}
	if err := s.authorizer.Authorize(ctx, creds); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.logger.Warn("billing rule update rejected: invalid credentials")
		}
		return nil, err
	}

	rule := candidate
	if err := s.store.UpsertRule(ctx, &rule); err != nil {
		s.logger.Error("failed to store billing rule", zap.Error(err))
		return nil, storeError("save rule", err)
	}

	s.logger.Info("billing rule updated",
		zap.String("rate_per_unit", rule.RatePerUnit.String()),
		zap.String("vat_percentage", rule.VATPercentage.String()),
		zap.String("fixed_service_charge", rule.FixedServiceCharge.String()),
	)
	if s.listener != nil {
		s.listener.RuleUpdated(rule)
	}
	return &rule, nil
}
