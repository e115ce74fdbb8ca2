// Package payment is the only place that talks to the payment gateway. It opens
// hosted checkout sessions keyed by order id and reports, on demand, whether an
// order has been paid.
package payment

import (
	"context"
	"errors"
	"strings"

	"workshophub/models"
)

var (
	// ErrUnknownOrder is returned by Verify for an order no session was opened for.
	ErrUnknownOrder = errors.New("no payment session for order")
	// ErrTimeout means the gateway did not become ready within the bounded wait.
	ErrTimeout = errors.New("payment gateway not ready in time")
	// ErrGatewayUnavailable wraps transient failures that survived every retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected wraps permanent client errors (4xx other than 429).
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrIgnoredEvent is returned by webhook parsing for events that carry no
	// payment outcome.
	ErrIgnoredEvent = errors.New("webhook event ignored")
)

// Status is the gateway's answer for an order.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// SessionRequest describes the checkout to open.
type SessionRequest struct {
	OrderID       string
	Description   string
	Amount        int64 // minor units
	Currency      string
	CustomerEmail string
}

// VerifyResult is the outcome of checking an order with the gateway.
type VerifyResult struct {
	OrderID       string `json:"orderId"`
	Status        Status `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Adapter is implemented by every gateway integration.
type Adapter interface {
	// CreateSession opens a checkout for the order. Calling it again while the
	// order's session is still usable returns the same handle.
	CreateSession(ctx context.Context, req SessionRequest) (*models.SessionHandle, error)
	// Verify asks the gateway about an order. It never trusts client input.
	Verify(ctx context.Context, orderID string) (*VerifyResult, error)
	// Name identifies the adapter in logs and health output.
	Name() string
	// Ready reports whether the readiness probe has succeeded.
	Ready() bool
}

// ReturnURL fills the {ORDER_ID} placeholder of a configured redirect URL.
func ReturnURL(template, orderID string) string {
	return strings.ReplaceAll(template, "{ORDER_ID}", orderID)
}
