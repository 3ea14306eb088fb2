package service

import (
	"github.com/shopspring/decimal"

	"utilitybill/backend/services/bill-service/internal/models"
)

// ComputeBill applies rule to a unit count. It performs no I/O.
//
//	subtotal = units * rate
//	vat      = subtotal * vat% / 100
//	total    = subtotal + vat + fixed charge
func ComputeBill(units decimal.Decimal, rule models.BillingRule) (*models.BillBreakdown, error) {
	if units.Sign() <= 0 {
		return nil, ErrInvalidInput
	}

	subtotal := units.Mul(rule.RatePerUnit)
	// Shift is an exact division by 100.
	vatAmount := subtotal.Mul(rule.VATPercentage).Shift(-2)
	serviceCharge := rule.FixedServiceCharge

	return &models.BillBreakdown{
		Units:         units,
		Subtotal:      subtotal,
		VATAmount:     vatAmount,
		ServiceCharge: serviceCharge,
		Total:         subtotal.Add(vatAmount).Add(serviceCharge),
	}, nil
}
