// File: services/booking/orchestrator.go
package booking

import (
	"context"
	"errors"
	"time"

	workshopRepo "workshophub/database/repository/workshop"
	"workshophub/models"
	"workshophub/services/enrollment"
	"workshophub/services/notification"
	"workshophub/services/payment"
	"workshophub/services/verification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config bounds the booking flow.
type Config struct {
	PaymentWindow      time.Duration
	AttemptTTL         time.Duration
	MaxPaymentAttempts int
	Currency           string
}

// Deps are the collaborators of an Orchestrator. Timeouts and Notifier are
// optional.
type Deps struct {
	Workshops workshopRepo.WorkshopRepository
	Gate      *verification.Gate
	Payments  payment.Adapter
	Ledger    *enrollment.Ledger
	Attempts  AttemptStore
	Timeouts  TimeoutScheduler
	Notifier  notification.NotificationService
	Logger    *zap.Logger
}

// Orchestrator implements BookingService.
type Orchestrator struct {
	workshops workshopRepo.WorkshopRepository
	gate      *verification.Gate
	payments  payment.Adapter
	ledger    *enrollment.Ledger
	attempts  AttemptStore
	timeouts  TimeoutScheduler
	notifier  notification.NotificationService
	cfg       Config
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

var _ BookingService = (*Orchestrator)(nil)

func NewOrchestrator(d Deps, cfg Config) *Orchestrator {
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = 30 * time.Minute
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = time.Hour
	}
	if cfg.AttemptTTL < cfg.PaymentWindow {
		cfg.AttemptTTL = cfg.PaymentWindow + 10*time.Minute
	}
	if cfg.MaxPaymentAttempts <= 0 {
		cfg.MaxPaymentAttempts = 3
	}
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeouts := d.Timeouts
	if timeouts == nil {
		timeouts = noopScheduler{}
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewLogNotifier(logger)
	}
	return &Orchestrator{
		workshops: d.Workshops,
		gate:      d.Gate,
		payments:  d.Payments,
		ledger:    d.Ledger,
		attempts:  d.Attempts,
		timeouts:  timeouts,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// apply runs ev through the state machine and updates the attempt.
func (o *Orchestrator) apply(a *models.BookingAttempt, ev Event) error {
	next, reason, err := Transition(a.State, a.FailureReason, ev)
	if err != nil {
		return err
	}
	o.logger.Debug("booking attempt transition",
		zap.String("attemptId", a.ID),
		zap.String("from", string(a.State)),
		zap.String("to", string(next)),
		zap.String("event", string(ev)))
	a.State = next
	a.FailureReason = reason
	a.UpdatedAt = o.now()
	return nil
}

func (o *Orchestrator) save(ctx context.Context, a *models.BookingAttempt) error {
	if err := o.attempts.Save(ctx, a, o.cfg.AttemptTTL); err != nil {
		o.logger.Error("failed to save booking attempt", zap.String("attemptId", a.ID), zap.Error(err))
		return errAttempt(err)
	}
	return nil
}

// withAttempt loads an attempt under its lock and runs fn.
func (o *Orchestrator) withAttempt(ctx context.Context, attemptID string, fn func(a *models.BookingAttempt) error) error {
	if attemptID == "" {
		return errAttempt(ErrAttemptNotFound)
	}
	unlock, err := o.attempts.Lock(ctx, attemptID)
	if err != nil {
		return errAttempt(err)
	}
	defer unlock()

	a, err := o.attempts.Get(ctx, attemptID)
	if err != nil {
		return errAttempt(err)
	}
	return fn(a)
}

// pastDeadline reports an attempt whose payment window has closed. The window
// closes at the deadline itself, when the timeout task fires.
func (o *Orchestrator) pastDeadline(a *models.BookingAttempt) bool {
	return a.AwaitingPayment() && !a.PaymentDeadline.IsZero() && !o.now().Before(a.PaymentDeadline)
}

// fail moves the attempt to failed via ev, saves it and publishes the failure.
func (o *Orchestrator) fail(ctx context.Context, a *models.BookingAttempt, ev Event, userMsg string, cause error) error {
	if err := o.apply(a, ev); err != nil {
		return errInvalidTransition(err)
	}
	a.LastError = userMsg
	if err := o.save(ctx, a); err != nil {
		return err
	}
	o.logger.Warn("booking attempt failed",
		zap.String("attemptId", a.ID),
		zap.String("orderId", a.OrderID),
		zap.String("reason", string(a.FailureReason)),
		zap.Error(cause))

	if a.FailureReason != models.FailureCapacity && a.OrderID != "" {
		ev := notification.PaymentFailedEvent{
			OrderID:    a.OrderID,
			AttemptID:  a.ID,
			Reason:     string(a.FailureReason),
			OccurredAt: o.now(),
		}
		if err := o.notifier.PaymentFailed(ctx, ev); err != nil {
			o.logger.Error("failed to publish payment failure", zap.String("orderId", a.OrderID), zap.Error(err))
		}
	}
	return nil
}

// loadWorkshop is a read-only lookup; store failures are reported as unavailable.
func (o *Orchestrator) loadWorkshop(ctx context.Context, workshopID string) (*models.Workshop, error) {
	w, err := o.workshops.GetWorkshop(ctx, workshopID)
	if err != nil {
		if errors.Is(err, workshopRepo.ErrWorkshopNotFound) {
			return nil, newError(CodeNotFound, "this workshop could not be found", err)
		}
		o.logger.Error("workshop lookup failed", zap.String("workshopId", workshopID), zap.Error(err))
		return nil, newError(CodeUnavailable, "workshop details are unavailable, please try again", err)
	}
	return w, nil
}

// GetAttempt returns the current attempt, settling it first when its payment
// window has closed.
func (o *Orchestrator) GetAttempt(ctx context.Context, attemptID string) (*models.BookingAttempt, error) {
	a, err := o.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, errAttempt(err)
	}
	if !o.pastDeadline(a) {
		return a, nil
	}

	var settled *models.BookingAttempt
	err = o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if o.pastDeadline(a) {
			// The outcome is recorded on the attempt itself.
			if _, err := o.settle(ctx, a, EventProceed); err != nil {
				o.logger.Info("payment window closed on read", zap.String("attemptId", a.ID), zap.Error(err))
			}
		}
		settled = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// Cancel discards the attempt. Nothing is released: no seat or money has
// moved before commit.
func (o *Orchestrator) Cancel(ctx context.Context, attemptID string) error {
	return o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if o.pastDeadline(a) {
			if _, err := o.settle(ctx, a, EventProceed); err != nil && CodeOf(err) != CodeTimeout {
				return err
			}
		}
		if err := o.apply(a, EventCancel); err != nil {
			return newError(CodeInvalidTransition, "this booking can no longer be cancelled", err)
		}
		if err := o.attempts.Delete(ctx, a.ID); err != nil {
			return errAttempt(err)
		}
		o.logger.Info("booking attempt cancelled", zap.String("attemptId", a.ID))
		return nil
	})
}
