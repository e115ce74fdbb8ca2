package notification

import (
	"context"
	"time"

	"workshophub/models"

	"go.uber.org/zap"
)

// Routing keys for domain events.
const (
	KeyEnrollmentCommitted  = "enrollment.committed"
	KeyEnrollmentOverbooked = "enrollment.overbooked"
	KeyPaymentFailed        = "payment.failed"
)

// OverbookedEvent reports a paid order that lost its seat before commit. It
// needs a refund by operations.
type OverbookedEvent struct {
	OrderID       string    `json:"orderId"`
	AttemptID     string    `json:"attemptId"`
	StudentID     string    `json:"studentId"`
	WorkshopID    string    `json:"workshopId"`
	BatchID       string    `json:"batchId"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transactionId"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// PaymentFailedEvent is emitted when an attempt ends in failed(payment|gateway|timeout).
type PaymentFailedEvent struct {
	OrderID    string    `json:"orderId"`
	AttemptID  string    `json:"attemptId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NotificationService publishes booking domain events. Publishing is best
// effort: callers log failures and carry on.
type NotificationService interface {
	EnrollmentCommitted(ctx context.Context, entry models.EnrollmentEntry) error
	EnrollmentOverbooked(ctx context.Context, ev OverbookedEvent) error
	PaymentFailed(ctx context.Context, ev PaymentFailedEvent) error
}

// publisher is the transport under a notifier.
type publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type eventNotifier struct {
	pub publisher
}

func (n *eventNotifier) EnrollmentCommitted(ctx context.Context, entry models.EnrollmentEntry) error {
	return n.pub.PublishJSON(ctx, KeyEnrollmentCommitted, entry)
}

func (n *eventNotifier) EnrollmentOverbooked(ctx context.Context, ev OverbookedEvent) error {
	return n.pub.PublishJSON(ctx, KeyEnrollmentOverbooked, ev)
}

func (n *eventNotifier) PaymentFailed(ctx context.Context, ev PaymentFailedEvent) error {
	return n.pub.PublishJSON(ctx, KeyPaymentFailed, ev)
}

// logPublisher writes events to the log. Used when no broker is configured.
type logPublisher struct {
	logger *zap.Logger
}

func (p *logPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.logger.Info("domain event", zap.String("routingKey", key), zap.Any("payload", v))
	return nil
}

// NewLogNotifier returns a NotificationService that only logs events.
func NewLogNotifier(logger *zap.Logger) NotificationService {
	return &eventNotifier{pub: &logPublisher{logger: logger}}
}
