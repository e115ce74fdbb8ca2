package booking

import (
	"errors"
	"fmt"
)

// Error codes surfaced to clients.
const (
	CodeInvalidInput       = "invalid_input"
	CodeNotFound           = "not_found"
	CodeCapacityExceeded   = "capacity_exceeded"
	CodeGatewayUnavailable = "gateway_unavailable"
	CodePaymentDeclined    = "payment_declined"
	CodeTimeout            = "timeout"
	CodeUnavailable        = "unavailable"
	CodeInvalidTransition  = "invalid_transition"
)

var (
	ErrAttemptNotFound = errors.New("booking attempt not found or expired")
	ErrAttemptBusy     = errors.New("booking attempt is being processed")
)

// BookingError is returned at the service boundary. Message is safe to show
// to the attendee; Err is for logs only.
type BookingError struct {
	Code    string
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BookingError) Unwrap() error { return e.Err }

func newError(code, msg string, err error) *BookingError {
	return &BookingError{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the code of a BookingError, or "" for any other error.
func CodeOf(err error) string {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func errInvalidTransition(err error) *BookingError {
	return newError(CodeInvalidTransition, "this step is not available right now", err)
}

func errAttempt(err error) *BookingError {
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		return newError(CodeNotFound, "your booking session has expired, please start again", err)
	case errors.Is(err, ErrAttemptBusy):
		return newError(CodeInvalidTransition, "your booking is being processed, please try again", err)
	}
	return newError(CodeUnavailable, "booking is temporarily unavailable", err)
}
