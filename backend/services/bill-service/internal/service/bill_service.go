package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/metrics"
	"utilitybill/backend/services/bill-service/internal/models"
)

// RuleReader returns the active billing rule.
type RuleReader interface {
	GetRule(ctx context.Context) RuleLookup
}

// BillService computes bills against the currently stored rule.
type BillService struct {
	rules   RuleReader
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBillService builds service.
func NewBillService(rules RuleReader, m *metrics.Metrics, logger *zap.Logger) *BillService {
	return &BillService{rules: rules, metrics: m, logger: logger}
}

// Calculate validates units, reads the rule fresh and computes the breakdown.
func (s *BillService) Calculate(ctx context.Context, units decimal.Decimal) (*models.BillBreakdown, error) {
	if units.Sign() <= 0 {
		s.metrics.Calculation(metrics.OutcomeInvalid)
		return nil, ErrInvalidInput
	}

	lookup := s.rules.GetRule(ctx)
	bill, err := ComputeBill(units, lookup.Rule)
	if err != nil {
		s.metrics.Calculation(outcomeOf(err))
		return nil, err
	}

	s.metrics.Calculation(metrics.OutcomeOK)
	s.logger.Debug("bill calculated",
		zap.String("units", units.String()),
		zap.String("total", bill.Total.String()),
		zap.Bool("default_rule", lookup.Default),
	)
	return bill, nil
}
