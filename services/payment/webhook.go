package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// WebhookEvent is the part of a gateway callback we act on. It only names the
// order; the outcome is always re-read through Verify.
type WebhookEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
}

var handledEvents = map[string]bool{
	"checkout.session.completed":                true,
	"checkout.session.expired":                  true,
	"checkout.session.async_payment_succeeded": true,
	"checkout.session.async_payment_failed":    true,
}

// ErrBadSignature is returned when a webhook payload fails signature checks.
var ErrBadSignature = errors.New("invalid webhook signature")

// WebhookParser validates Stripe-signed callbacks.
type WebhookParser struct {
	secret string
}

func NewWebhookParser(secret string) *WebhookParser {
	return &WebhookParser{secret: secret}
}

// ParseWebhook checks the Stripe-Signature header and extracts the order id.
// Events that do not concern a checkout outcome return ErrIgnoredEvent.
func (p *WebhookParser) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	eventType := string(event.Type)
	if !handledEvents[eventType] {
		return nil, ErrIgnoredEvent
	}
	if event.Data == nil {
		return nil, fmt.Errorf("webhook %s has no data", event.ID)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	orderID := cs.ClientReferenceID
	if orderID == "" {
		orderID = cs.Metadata["order_id"]
	}
	if orderID == "" {
		return nil, ErrIgnoredEvent
	}
	return &WebhookEvent{ID: event.ID, Type: eventType, OrderID: orderID, SessionID: cs.ID}, nil
}
