package handlers

import (
	"net/http"
	"strings"
	"time"

	"workshophub/models"
	"workshophub/services/booking"
	"workshophub/services/verification"
	"workshophub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking flow over HTTP.
type BookingHandler struct {
	Service  booking.BookingService
	TokenTTL time.Duration
}

func NewBookingHandler(svc booking.BookingService, tokenTTL time.Duration) *BookingHandler {
	return &BookingHandler{Service: svc, TokenTTL: tokenTTL}
}

func attemptID(c *gin.Context) string {
	return c.GetString("attemptID")
}

// ListSelectableDays returns the bookable days of a workshop.
func (h *BookingHandler) ListSelectableDays(c *gin.Context) {
	days, err := h.Service.ListSelectableDays(c.Request.Context(), c.Param("workshopID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// ListBatches returns the batches covering one day (YYYY-MM-DD).
func (h *BookingHandler) ListBatches(c *gin.Context) {
	day, err := models.ParseCalendarDay(c.Param("day"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, booking.CodeInvalidInput, "Use a date like 2025-03-15.", "")
		return
	}
	batches, err := h.Service.ListBatches(c.Request.Context(), c.Param("workshopID"), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "batches": batches})
}

// ListUnresolvedBatches returns the batches whose dates are still TBD.
func (h *BookingHandler) ListUnresolvedBatches(c *gin.Context) {
	batches, err := h.Service.ListUnresolvedBatches(c.Request.Context(), c.Param("workshopID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// StartVerification submits a contact. A bearer token, when sent, continues
// that attempt; otherwise a new attempt is created and its token returned.
func (h *BookingHandler) StartVerification(c *gin.Context) {
	var input struct {
		WorkshopID string `json:"workshopId"`
		Method     string `json:"method" binding:"required"`
		Value      string `json:"value"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid request.", err)
		return
	}

	req := booking.StartRequest{
		WorkshopID: input.WorkshopID,
		Method:     verification.Method(strings.ToLower(input.Method)),
		Value:      input.Value,
	}
	if auth := c.GetHeader(utils.AttemptTokenHeader); auth != "" {
		id, err := utils.ExtractAttemptID(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Your booking session is invalid or has expired.", "")
			return
		}
		req.AttemptID = id
	}

	res, err := h.Service.StartVerification(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := utils.GenerateAttemptToken(res.Attempt.ID, h.TokenTTL)
	if err != nil {
		getLogger(c).Error("failed to sign attempt token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal", "Something went wrong, please try again.", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"outcome": res.Outcome,
		"reason":  res.Reason,
		"attempt": res.Attempt,
	})
}

// GetAttempt returns the caller's attempt.
func (h *BookingHandler) GetAttempt(c *gin.Context) {
	a, err := h.Service.GetAttempt(c.Request.Context(), attemptID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": a})
}

// SelectBatch attaches a batch to the caller's attempt.
func (h *BookingHandler) SelectBatch(c *gin.Context) {
	var input struct {
		BatchID string `json:"batchId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Choose a batch.", err)
		return
	}
	res, err := h.Service.SelectBatch(c.Request.Context(), attemptID(c), input.BatchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// BeginPayment opens the payment for the selected batch.
func (h *BookingHandler) BeginPayment(c *gin.Context) {
	res, err := h.Service.BeginPayment(c.Request.Context(), attemptID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Proceed verifies the payment on the caller's request.
func (h *BookingHandler) Proceed(c *gin.Context) {
	res, err := h.Service.Proceed(c.Request.Context(), attemptID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RetryPayment reopens a failed payment under the same order.
func (h *BookingHandler) RetryPayment(c *gin.Context) {
	res, err := h.Service.RetryPayment(c.Request.Context(), attemptID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Cancel discards the caller's attempt.
func (h *BookingHandler) Cancel(c *gin.Context) {
	if err := h.Service.Cancel(c.Request.Context(), attemptID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// GatewayReturn handles the browser coming back from the hosted checkout.
func (h *BookingHandler) GatewayReturn(c *gin.Context) {
	orderID := c.Query("order_id")
	res, err := h.Service.HandleGatewayReturn(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
