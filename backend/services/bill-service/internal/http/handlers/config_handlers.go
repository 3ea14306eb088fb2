package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"utilitybill/backend/services/bill-service/internal/models"
	"utilitybill/backend/services/bill-service/internal/service"
)

// Values of the "source" field of GET /api/config.
const (
	sourceDatabase = "database"
	sourceDefault  = "default"
)

// RuleManager reads and updates the billing rule.
type RuleManager interface {
	GetRule(ctx context.Context) service.RuleLookup
	UpdateRule(ctx context.Context, candidate models.BillingRule, creds service.AdminCredentials) (*models.BillingRule, error)
}

// ConfigHandlers serves the billing rule endpoints.
type ConfigHandlers struct {
	rules  RuleManager
	logger *zap.Logger
}

// NewConfigHandlers returns handler.
func NewConfigHandlers(rules RuleManager, logger *zap.Logger) *ConfigHandlers {
	return &ConfigHandlers{rules: rules, logger: logger}
}

type configResponse struct {
	models.RuleDTO
	Source       string `json:"source"`
	TableMissing bool   `json:"tableMissing"`
}

// Get handles GET /api/config. It always answers 200, falling back to the default rule.
func (h *ConfigHandlers) Get(w http.ResponseWriter, r *http.Request) {
	lookup := h.rules.GetRule(r.Context())
	source := sourceDatabase
	if lookup.Default {
		source = sourceDefault
	}
	writeJSON(w, http.StatusOK, configResponse{
		RuleDTO:      models.NewRuleDTO(lookup.Rule),
		Source:       source,
		TableMissing: lookup.TableMissing,
	})
}

type updateConfigRequest struct {
	RatePerUnit        *decimal.Decimal `json:"ratePerUnit"`
	VATPercentage      *decimal.Decimal `json:"vatPercentage"`
	FixedServiceCharge *decimal.Decimal `json:"fixedServiceCharge"`
}

func (req updateConfigRequest) rule() (models.BillingRule, error) {
	var missing []service.FieldError
	for _, f := range []struct {
		name  string
		value *decimal.Decimal
	}{
		{"ratePerUnit", req.RatePerUnit},
		{"vatPercentage", req.VATPercentage},
		{"fixedServiceCharge", req.FixedServiceCharge},
	} {
		if f.value == nil {
			missing = append(missing, service.FieldError{Field: f.name, Message: "is required"})
		}
	}
	if len(missing) > 0 {
		return models.BillingRule{}, &service.ValidationError{Fields: missing}
	}
	return models.BillingRule{
		RatePerUnit:        *req.RatePerUnit,
		VATPercentage:      *req.VATPercentage,
		FixedServiceCharge: *req.FixedServiceCharge,
	}, nil
}

// Put handles PUT /api/config.
func (h *ConfigHandlers) Put(w http.ResponseWriter, r *http.Request) {
	creds := adminCredentials(r)
	if creds.PIN == "" && creds.SessionToken == "" {
		writeError(w, http.StatusUnauthorized, "PIN is required")
		return
	}

	var req updateConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	candidate, err := req.rule()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), candidate, creds)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message string         `json:"message"`
		Config  models.RuleDTO `json:"config"`
	}{
		Message: "Configuration updated successfully",
		Config:  models.NewRuleDTO(*rule),
	})
}
