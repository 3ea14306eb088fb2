package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/models"
)

// BillCalculator computes a bill for a unit count.
type BillCalculator interface {
	Calculate(ctx context.Context, units decimal.Decimal) (*models.BillBreakdown, error)
}

// NewCalculateHandler handles POST /api/calculate.
func NewCalculateHandler(bills BillCalculator, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Units json.RawMessage `json:"units"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		// Accepts a JSON number or a numeric string.
		var units decimal.Decimal
		if len(req.Units) == 0 || units.UnmarshalJSON(req.Units) != nil {
			writeError(w, http.StatusBadRequest, "units must be a positive number")
			return
		}

		bill, err := bills.Calculate(r.Context(), units)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, models.NewBillDTO(*bill))
	}
}
