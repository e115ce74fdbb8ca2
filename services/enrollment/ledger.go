// Package enrollment records confirmed seats. A commit is keyed by order id and
// takes the seat in the same transaction that writes the entry.
package enrollment

import (
	"context"
	"errors"
	"fmt"

	enrollmentRepo "workshophub/database/repository/enrollment"
	"workshophub/models"
	"workshophub/services/notification"

	"go.uber.org/zap"
)

var (
	ErrCapacityExceeded = enrollmentRepo.ErrCapacityExceeded
	ErrNotFound         = enrollmentRepo.ErrNotFound
	ErrInvalidRequest   = errors.New("invalid commit request")
)

type CommitRequest struct {
	OrderID       string
	StudentID     string
	WorkshopID    string
	BatchID       string
	Amount        int64
	Currency      string
	TransactionID string
	Free          bool
}

type CommitResult struct {
	Entry   *models.EnrollmentEntry
	Outcome enrollmentRepo.CommitOutcome
}

// Duplicate reports a replayed order id. It is a success.
func (r *CommitResult) Duplicate() bool {
	return r.Outcome == enrollmentRepo.AlreadyExists
}

type Ledger struct {
	repo     enrollmentRepo.EnrollmentRepository
	notifier notification.NotificationService
	logger   *zap.Logger
}

func NewLedger(repo enrollmentRepo.EnrollmentRepository, notifier notification.NotificationService, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, notifier: notifier, logger: logger}
}

// Commit writes the entry and takes one seat. Replaying an order id returns
// the stored entry with outcome AlreadyExists and takes nothing.
func (l *Ledger) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if req.OrderID == "" || req.StudentID == "" || req.BatchID == "" {
		return nil, ErrInvalidRequest
	}

	status := models.EnrollmentPaid
	if req.Free {
		status = models.EnrollmentFree
	}
	entry, outcome, err := l.repo.Commit(ctx, models.EnrollmentEntry{
		OrderID:       req.OrderID,
		StudentID:     req.StudentID,
		WorkshopID:    req.WorkshopID,
		BatchID:       req.BatchID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentStatus: status,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			l.logger.Warn("commit rejected, batch is full",
				zap.String("orderId", req.OrderID), zap.String("batchId", req.BatchID))
			return nil, err
		}
		return nil, fmt.Errorf("enrollment commit failed: %w", err)
	}

	if outcome == enrollmentRepo.Created {
		l.logger.Info("enrollment committed",
			zap.String("orderId", entry.OrderID),
			zap.String("batchId", entry.BatchID),
			zap.String("paymentStatus", string(entry.PaymentStatus)))
		if err := l.notifier.EnrollmentCommitted(ctx, *entry); err != nil {
			l.logger.Error("failed to publish enrollment event", zap.String("orderId", entry.OrderID), zap.Error(err))
		}
	} else {
		l.logger.Info("duplicate commit treated as success", zap.String("orderId", entry.OrderID))
	}
	return &CommitResult{Entry: entry, Outcome: outcome}, nil
}

// Get reads a committed entry by order id.
func (l *Ledger) Get(ctx context.Context, orderID string) (*models.EnrollmentEntry, error) {
	return l.repo.GetByOrderID(ctx, orderID)
}

// ReportOverbooked publishes a paid order that could not get its seat.
func (l *Ledger) ReportOverbooked(ctx context.Context, ev notification.OverbookedEvent) {
	l.logger.Error("paid order lost its seat, refund required",
		zap.String("orderId", ev.OrderID),
		zap.String("batchId", ev.BatchID),
		zap.String("transactionId", ev.TransactionID))
	if err := l.notifier.EnrollmentOverbooked(ctx, ev); err != nil {
		l.logger.Error("failed to publish overbooked event", zap.String("orderId", ev.OrderID), zap.Error(err))
	}
}
