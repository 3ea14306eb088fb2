package ws

import (
	"encoding/json"

	"utilitybill/backend/services/bill-service/internal/models"
)

// Message types pushed to subscribers.
const (
	TypeRuleSnapshot = "rule.snapshot"
	TypeRuleUpdated  = "rule.updated"
)

// Message is one frame on the config stream.
type Message struct {
	Type   string         `json:"type"`
	Config models.RuleDTO `json:"config"`
}

func encode(msgType string, rule models.BillingRule) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Config: models.NewRuleDTO(rule)})
}
