package handlers

import (
	"errors"
	"net/http"

	"workshophub/services/booking"
	"workshophub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	booking.CodeInvalidInput:       http.StatusBadRequest,
	booking.CodeNotFound:           http.StatusNotFound,
	booking.CodeCapacityExceeded:   http.StatusConflict,
	booking.CodeGatewayUnavailable: http.StatusServiceUnavailable,
	booking.CodePaymentDeclined:    http.StatusPaymentRequired,
	booking.CodeTimeout:            http.StatusGatewayTimeout,
	booking.CodeUnavailable:        http.StatusServiceUnavailable,
	booking.CodeInvalidTransition:  http.StatusConflict,
}

// badRequest rejects an unreadable body. Binding errors name Go fields, so
// they are logged and never returned.
func badRequest(c *gin.Context, message string, err error) {
	getLogger(c).Info("request body rejected", zap.Error(err))
	utils.JSONError(c, http.StatusBadRequest, booking.CodeInvalidInput, message, "")
}

// respondError writes a booking error. Only the user-facing message leaves
// the service; the cause is logged.
func respondError(c *gin.Context, err error) {
	var be *booking.BookingError
	if !errors.As(err, &be) {
		getLogger(c).Error("unexpected booking error", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal", "Something went wrong, please try again.", "")
		return
	}
	status, ok := statusByCode[be.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if be.Err != nil {
		getLogger(c).Info("booking request failed", zap.String("code", be.Code), zap.Error(be.Err))
	}
	utils.JSONError(c, status, be.Code, be.Message, "")
}
