package handlers

import (
	"errors"
	"io"
	"net/http"

	"workshophub/services/booking"
	"workshophub/services/payment"
	"workshophub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBytes = 64 << 10

// WebhookParser verifies and decodes gateway callbacks.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// WebhookHandler receives gateway callbacks. The event only names the order;
// the outcome is re-verified with the gateway.
type WebhookHandler struct {
	Service booking.BookingService
	Parser  WebhookParser
}

func NewWebhookHandler(svc booking.BookingService, parser WebhookParser) *WebhookHandler {
	return &WebhookHandler{Service: svc, Parser: parser}
}

// retryableCodes make the gateway deliver the event again.
var retryableCodes = map[string]bool{
	booking.CodeUnavailable:        true,
	booking.CodeGatewayUnavailable: true,
}

func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	logger := getLogger(c)
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeInvalidInput, "Unreadable payload.", "")
		return
	}

	event, err := h.Parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, payment.ErrIgnoredEvent):
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	case errors.Is(err, payment.ErrBadSignature):
		logger.Warn("webhook signature rejected")
		utils.JSONError(c, http.StatusBadRequest, "bad_signature", "Invalid signature.", "")
		return
	case err != nil:
		logger.Warn("webhook payload rejected", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, booking.CodeInvalidInput, "Invalid payload.", "")
		return
	}

	logger.Info("payment webhook received",
		zap.String("eventId", event.ID),
		zap.String("type", event.Type),
		zap.String("orderId", event.OrderID))

	res, err := h.Service.HandleGatewayReturn(c.Request.Context(), event.OrderID)
	if err != nil {
		code := booking.CodeOf(err)
		if retryableCodes[code] {
			respondError(c, err)
			return
		}
		// The outcome is recorded on the attempt; nothing to redeliver.
		logger.Info("webhook settled without commit", zap.String("orderId", event.OrderID), zap.String("code", code))
		c.JSON(http.StatusOK, gin.H{"received": true, "code": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "status": res.Status})
}
