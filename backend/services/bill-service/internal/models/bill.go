package models

import "github.com/shopspring/decimal"

// BillBreakdown is a computed bill. It is never persisted.
type BillBreakdown struct {
	Units         decimal.Decimal `json:"units"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vatAmount"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	Total         decimal.Decimal `json:"total"`
}
