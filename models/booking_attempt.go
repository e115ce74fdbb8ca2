package models

import "time"

// AttemptState is a state of the booking state machine.
type AttemptState string

const (
	StateIdle             AttemptState = "idle"
	StateVerifying        AttemptState = "verifying"
	StateBatchSelection   AttemptState = "batch_selection"
	StateNoBatches        AttemptState = "no_batches"
	StatePaymentPending   AttemptState = "payment_pending"
	StateVerifyingPayment AttemptState = "verifying_payment"
	StateCommitted        AttemptState = "committed"
	StateCancelled        AttemptState = "cancelled"
	StateFailed           AttemptState = "failed"
)

// FailureReason qualifies StateFailed.
type FailureReason string

const (
	FailureNone     FailureReason = ""
	FailurePayment  FailureReason = "payment"
	FailureGateway  FailureReason = "gateway"
	FailureTimeout  FailureReason = "timeout"
	FailureCapacity FailureReason = "capacity"
)

// BookingAttempt is the per-session state of one booking flow. It lives in the
// attempt cache only; a committed attempt leaves an EnrollmentEntry behind.
type BookingAttempt struct {
	ID              string         `json:"id"`
	State           AttemptState   `json:"state"`
	FailureReason   FailureReason  `json:"failureReason,omitempty"`
	LastError       string         `json:"lastError,omitempty"`
	WorkshopID      string         `json:"workshopId"`
	BatchID         string         `json:"batchId,omitempty"`
	Student         *Student       `json:"student,omitempty"`
	OrderID         string         `json:"orderId,omitempty"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency,omitempty"`
	Session         *SessionHandle `json:"session,omitempty"`
	PaymentDeadline time.Time      `json:"paymentDeadline,omitzero"`
	PaymentAttempts int            `json:"paymentAttempts"`
	TransactionID   string         `json:"transactionId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// IsTerminal reports committed, cancelled or failed.
func (a *BookingAttempt) IsTerminal() bool {
	switch a.State {
	case StateCommitted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// AwaitingPayment reports whether the attempt is inside the payment window.
func (a *BookingAttempt) AwaitingPayment() bool {
	return a.State == StatePaymentPending || a.State == StateVerifyingPayment
}
