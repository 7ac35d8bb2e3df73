package mercadopago

import (
	"encoding/json"
	"fmt"
)

// Payment statuses returned by the provider. Approved is the only status that
// triggers a ledger write; rejected and cancelled release the slot hold.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// PreferenceRequest creates a hosted checkout for the booking deposit. The
// full booking travels in Metadata so it comes back attached to the payment.
type PreferenceRequest struct {
	Title             string
	AmountCents       int64
	ExternalReference string
	Metadata          map[string]string
	SuccessURL        string
	FailureURL        string
	NotificationURL   string
}

// Preference is the provider-side checkout the client is redirected to.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the authoritative record fetched from /v1/payments/{id}.
// Webhook bodies are only pointers to this; their status fields are never
// trusted.
type Payment struct {
	ID                json.Number    `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail"`
	TransactionAmount float64        `json:"transaction_amount"`
	Metadata          map[string]any `json:"metadata"`
	ExternalReference string         `json:"external_reference"`
}

// AmountCents converts the transaction amount to integer cents.
func (p *Payment) AmountCents() int64 {
	return int64(p.TransactionAmount*100 + 0.5)
}

// MetaString extracts a string metadata value. The provider lowercases and
// snake_cases metadata keys, and may round-trip numbers, so both are handled.
func (p *Payment) MetaString(key string) string {
	if p.Metadata == nil {
		return ""
	}
	switch v := p.Metadata[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
