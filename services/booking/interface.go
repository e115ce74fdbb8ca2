package booking

import (
	"context"
	"time"

	"workshophub/models"
	"workshophub/services/payment"
	"workshophub/services/verification"
)

// BookingService drives booking attempts from contact verification to a
// committed enrollment.
type BookingService interface {
	StartVerification(ctx context.Context, req StartRequest) (*VerificationResult, error)
	ListSelectableDays(ctx context.Context, workshopID string) ([]models.CalendarDay, error)
	ListBatches(ctx context.Context, workshopID string, day models.CalendarDay) ([]BatchView, error)
	ListUnresolvedBatches(ctx context.Context, workshopID string) ([]BatchView, error)
	SelectBatch(ctx context.Context, attemptID, batchID string) (*BatchSelectionResult, error)
	BeginPayment(ctx context.Context, attemptID string) (*PaymentStart, error)
	Proceed(ctx context.Context, attemptID string) (*CommitResult, error)
	HandleGatewayReturn(ctx context.Context, orderID string) (*CommitResult, error)
	RetryPayment(ctx context.Context, attemptID string) (*PaymentStart, error)
	ExpirePayment(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, attemptID string) error
	GetAttempt(ctx context.Context, attemptID string) (*models.BookingAttempt, error)
}

// TimeoutScheduler arranges for ExpirePayment to run for an order at a
// deadline. attempt distinguishes the sessions of a retried order.
type TimeoutScheduler interface {
	SchedulePaymentTimeout(ctx context.Context, orderID string, attempt int, at time.Time) error
}

type noopScheduler struct{}

func (noopScheduler) SchedulePaymentTimeout(context.Context, string, int, time.Time) error {
	return nil
}

// StartRequest submits a contact. An empty AttemptID starts a new attempt for
// WorkshopID; otherwise the existing attempt is re-verified.
type StartRequest struct {
	AttemptID  string              `json:"attemptId,omitempty"`
	WorkshopID string              `json:"workshopId"`
	Method     verification.Method `json:"method"`
	Value      string              `json:"value"`
}

type VerificationResult struct {
	Attempt *models.BookingAttempt `json:"attempt"`
	Outcome verification.Outcome   `json:"outcome"`
	Reason  string                 `json:"reason,omitempty"`
}

type BatchSelectionResult struct {
	Attempt *models.BookingAttempt `json:"attempt"`
	Batch   BatchView              `json:"batch"`
}

// PaymentStart is returned when a payment is opened. Free workshops commit
// immediately and carry Entry instead of Session.
type PaymentStart struct {
	Attempt *models.BookingAttempt  `json:"attempt"`
	Session *models.SessionHandle   `json:"session,omitempty"`
	Free    bool                    `json:"free"`
	Entry   *models.EnrollmentEntry `json:"entry,omitempty"`
}

// CommitResult reports the outcome of verifying an order. Entry is set once
// the enrollment is committed; Status is pending while the gateway is
// undecided.
type CommitResult struct {
	Attempt   *models.BookingAttempt  `json:"attempt,omitempty"`
	Status    payment.Status          `json:"status"`
	Entry     *models.EnrollmentEntry `json:"entry,omitempty"`
	Duplicate bool                    `json:"duplicate"`
}
