package models

import "time"

// EnrollmentPaymentStatus records how a seat was paid for.
type EnrollmentPaymentStatus string

const (
	EnrollmentPaid EnrollmentPaymentStatus = "paid"
	EnrollmentFree EnrollmentPaymentStatus = "free"
)

// EnrollmentEntry is the durable outcome of a booking attempt. OrderID is unique.
type EnrollmentEntry struct {
	OrderID       string                  `bson:"orderId" json:"orderId"`
	StudentID     string                  `bson:"studentId" json:"studentId"`
	WorkshopID    string                  `bson:"workshopId" json:"workshopId"`
	BatchID       string                  `bson:"batchId" json:"batchId"`
	Amount        int64                   `bson:"amount" json:"amount"`
	Currency      string                  `bson:"currency" json:"currency"`
	PaymentStatus EnrollmentPaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	TransactionID string                  `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	CreatedAt     time.Time               `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time               `bson:"updatedAt" json:"updatedAt"`
}
