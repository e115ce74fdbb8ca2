// File: workshophub/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Health gin.HandlerFunc

	// Catalogue endpoints
	ListSelectableDays    gin.HandlerFunc
	ListBatches           gin.HandlerFunc
	ListUnresolvedBatches gin.HandlerFunc

	// Booking attempt endpoints
	StartVerification gin.HandlerFunc
	GetAttempt        gin.HandlerFunc
	SelectBatch       gin.HandlerFunc
	BeginPayment      gin.HandlerFunc
	ProceedPayment    gin.HandlerFunc
	RetryPayment      gin.HandlerFunc
	CancelAttempt     gin.HandlerFunc

	// Gateway endpoints. PaymentWebhook is nil when no gateway callback is configured.
	GatewayReturn  gin.HandlerFunc
	PaymentWebhook gin.HandlerFunc

	// Origins allowed by CORS. Empty allows all.
	AllowedOrigins []string
}

// NewHandlerBundle wires the booking and webhook handlers. webhook may be nil.
func NewHandlerBundle(b *BookingHandler, webhook *WebhookHandler) *HandlerBundle {
	hb := &HandlerBundle{
		Health:                Health,
		ListSelectableDays:    b.ListSelectableDays,
		ListBatches:           b.ListBatches,
		ListUnresolvedBatches: b.ListUnresolvedBatches,
		StartVerification:     b.StartVerification,
		GetAttempt:            b.GetAttempt,
		SelectBatch:           b.SelectBatch,
		BeginPayment:          b.BeginPayment,
		ProceedPayment:        b.Proceed,
		RetryPayment:          b.RetryPayment,
		CancelAttempt:         b.Cancel,
		GatewayReturn:         b.GatewayReturn,
	}
	if webhook != nil {
		hb.PaymentWebhook = webhook.HandleWebhook
	}
	return hb
}
