package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RuleDTO is the wire form of a billing rule. Amounts are JSON numbers.
type RuleDTO struct {
	RatePerUnit        json.Number `json:"ratePerUnit"`
	VATPercentage      json.Number `json:"vatPercentage"`
	FixedServiceCharge json.Number `json:"fixedServiceCharge"`
	UpdatedAt          *time.Time  `json:"updatedAt,omitempty"`
}

// NewRuleDTO converts a rule for responses and stream messages.
func NewRuleDTO(rule BillingRule) RuleDTO {
	dto := RuleDTO{
		RatePerUnit:        number(rule.RatePerUnit),
		VATPercentage:      number(rule.VATPercentage),
		FixedServiceCharge: number(rule.FixedServiceCharge),
	}
	if !rule.UpdatedAt.IsZero() {
		updated := rule.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

// BillDTO is the wire form of a bill breakdown.
type BillDTO struct {
	Units         json.Number `json:"units"`
	Subtotal      json.Number `json:"subtotal"`
	VATAmount     json.Number `json:"vatAmount"`
	ServiceCharge json.Number `json:"serviceCharge"`
	Total         json.Number `json:"total"`
}

// NewBillDTO converts a breakdown for the calculate response.
func NewBillDTO(bill BillBreakdown) BillDTO {
	return BillDTO{
		Units:         number(bill.Units),
		Subtotal:      number(bill.Subtotal),
		VATAmount:     number(bill.VATAmount),
		ServiceCharge: number(bill.ServiceCharge),
		Total:         number(bill.Total),
	}
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
