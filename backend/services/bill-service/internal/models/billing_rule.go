package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SingletonID is the fixed primary key of the rule and credential rows.
const SingletonID int64 = 1

// BillingRule is the pricing formula applied to a unit count.
type BillingRule struct {
	RatePerUnit        decimal.Decimal `db:"rate_per_unit" json:"ratePerUnit" validate:"dgt=0"`
	VATPercentage      decimal.Decimal `db:"vat_percentage" json:"vatPercentage" validate:"dgte=0,dlte=100"`
	FixedServiceCharge decimal.Decimal `db:"fixed_service_charge" json:"fixedServiceCharge" validate:"dgte=0"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt,omitempty" validate:"-"`
}

// DefaultBillingRule is served until an administrator stores a rule.
func DefaultBillingRule() BillingRule {
	return BillingRule{
		RatePerUnit:        decimal.RequireFromString("0.15"),
		VATPercentage:      decimal.RequireFromString("5.0"),
		FixedServiceCharge: decimal.RequireFromString("10.0"),
	}
}

// Equal compares the pricing fields, ignoring timestamps and trailing zeros.
func (r BillingRule) Equal(other BillingRule) bool {
	return r.RatePerUnit.Equal(other.RatePerUnit) &&
		r.VATPercentage.Equal(other.VATPercentage) &&
		r.FixedServiceCharge.Equal(other.FixedServiceCharge)
}
