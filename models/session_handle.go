package models

import "time"

// SessionHandle identifies a hosted checkout session opened for an order.
type SessionHandle struct {
	OrderID     string    `json:"orderId"`
	SessionID   string    `json:"sessionId"`
	CheckoutURL string    `json:"checkoutUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
	Attempt     int       `json:"attempt"` // 1 for the first session of an order, incremented on replacement
}
