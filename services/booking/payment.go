package booking

import (
	"context"
	"errors"
	"fmt"

	"workshophub/models"
	"workshophub/services/enrollment"
	"workshophub/services/notification"
	"workshophub/services/payment"

	"go.uber.org/zap"
)

// BeginPayment opens payment for the selected batch under a fresh order id.
// Free workshops commit straight away and never enter payment_pending.
func (o *Orchestrator) BeginPayment(ctx context.Context, attemptID string) (*PaymentStart, error) {
	var res *PaymentStart
	err := o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if !Accepts(a.State, EventPaymentOpened) {
			return errInvalidTransition(nil)
		}
		if a.BatchID == "" {
			return newError(CodeInvalidInput, "choose a batch first", nil)
		}

		// 1. Re-check seats against the store.
		if _, err := o.freshBatch(ctx, a, a.BatchID); err != nil {
			return err
		}

		// 2. Order ids are only ever minted here.
		orderID := "order_" + o.newID()

		if a.Amount <= 0 {
			var err error
			res, err = o.commitFree(ctx, a, orderID)
			return err
		}

		a.OrderID = orderID
		a.PaymentAttempts = 0
		if err := o.attempts.BindOrder(ctx, orderID, a.ID, o.cfg.AttemptTTL); err != nil {
			return errAttempt(err)
		}
		var err error
		res, err = o.openSession(ctx, a, EventPaymentOpened)
		return err
	})
	return res, err
}

func (o *Orchestrator) commitFree(ctx context.Context, a *models.BookingAttempt, orderID string) (*PaymentStart, error) {
	result, err := o.ledger.Commit(ctx, enrollment.CommitRequest{
		OrderID:    orderID,
		StudentID:  a.Student.ID,
		WorkshopID: a.WorkshopID,
		BatchID:    a.BatchID,
		Currency:   a.Currency,
		Free:       true,
	})
	if err != nil {
		if errors.Is(err, enrollment.ErrCapacityExceeded) {
			// Still in batch_selection: the attendee picks another batch.
			if err := o.apply(a, EventCapacityLost); err != nil {
				return nil, errInvalidTransition(err)
			}
			a.LastError = "this batch has just filled up, please choose another"
			if saveErr := o.save(ctx, a); saveErr != nil {
				return nil, saveErr
			}
			return nil, newError(CodeCapacityExceeded, a.LastError, err)
		}
		return nil, newError(CodeUnavailable, "we could not confirm your seat, please try again", err)
	}

	if err := o.apply(a, EventFreeCommitted); err != nil {
		return nil, errInvalidTransition(err)
	}
	a.OrderID = orderID
	a.LastError = ""
	if err := o.save(ctx, a); err != nil {
		return nil, err
	}
	o.logger.Info("free enrollment committed", zap.String("attemptId", a.ID), zap.String("orderId", orderID))
	return &PaymentStart{Attempt: a, Free: true, Entry: result.Entry}, nil
}

// openSession asks the gateway for a checkout session and enters
// payment_pending via ev. A gateway failure ends in failed(gateway).
func (o *Orchestrator) openSession(ctx context.Context, a *models.BookingAttempt, ev Event) (*PaymentStart, error) {
	req := payment.SessionRequest{
		OrderID:     a.OrderID,
		Description: fmt.Sprintf("Workshop booking %s", a.WorkshopID),
		Amount:      a.Amount,
		Currency:    a.Currency,
	}
	if a.Student != nil {
		req.CustomerEmail = a.Student.Email
	}

	handle, err := o.payments.CreateSession(ctx, req)
	if err != nil {
		code, msg := CodeGatewayUnavailable, "payment could not be started, please try again"
		if errors.Is(err, payment.ErrTimeout) {
			code, msg = CodeTimeout, "the payment service is taking too long, please try again"
		}
		if ev == EventRetry {
			// Re-enter payment_pending so the failure is recorded from there.
			if err := o.apply(a, EventRetry); err != nil {
				return nil, errInvalidTransition(err)
			}
		}
		if failErr := o.fail(ctx, a, EventGatewayError, msg, err); failErr != nil {
			return nil, failErr
		}
		return nil, newError(code, msg, err)
	}

	if err := o.apply(a, ev); err != nil {
		return nil, errInvalidTransition(err)
	}
	a.Session = handle
	a.PaymentAttempts++
	a.PaymentDeadline = o.now().Add(o.cfg.PaymentWindow)
	a.LastError = ""
	if err := o.save(ctx, a); err != nil {
		return nil, err
	}

	if err := o.timeouts.SchedulePaymentTimeout(ctx, a.OrderID, a.PaymentAttempts, a.PaymentDeadline); err != nil {
		// Deadlines are also enforced on the next read of the attempt.
		o.logger.Warn("failed to schedule payment timeout", zap.String("orderId", a.OrderID), zap.Error(err))
	}
	o.logger.Info("payment session opened",
		zap.String("attemptId", a.ID),
		zap.String("orderId", a.OrderID),
		zap.String("gateway", o.payments.Name()),
		zap.Int("paymentAttempt", a.PaymentAttempts))
	return &PaymentStart{Attempt: a, Session: handle}, nil
}

// RetryPayment reopens payment for a failed attempt under the same order id.
func (o *Orchestrator) RetryPayment(ctx context.Context, attemptID string) (*PaymentStart, error) {
	var res *PaymentStart
	err := o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if _, _, err := Transition(a.State, a.FailureReason, EventRetry); err != nil {
			return errInvalidTransition(err)
		}
		if a.PaymentAttempts >= o.cfg.MaxPaymentAttempts {
			return newError(CodeInvalidTransition, "too many payment attempts, please start a new booking", nil)
		}
		if _, err := o.freshBatch(ctx, a, a.BatchID); err != nil {
			return err
		}
		var err error
		res, err = o.openSession(ctx, a, EventRetry)
		return err
	})
	return res, err
}

// Proceed verifies the attempt's order on explicit request, as done by the
// synchronous checkout path.
func (o *Orchestrator) Proceed(ctx context.Context, attemptID string) (*CommitResult, error) {
	var res *CommitResult
	err := o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		var err error
		res, err = o.settle(ctx, a, EventProceed)
		return err
	})
	return res, err
}

// HandleGatewayReturn verifies an order reported back by the gateway, by
// redirect or callback. Replays return the committed entry again.
func (o *Orchestrator) HandleGatewayReturn(ctx context.Context, orderID string) (*CommitResult, error) {
	if orderID == "" {
		return nil, newError(CodeInvalidInput, "missing order reference", nil)
	}
	attemptID, err := o.attempts.AttemptForOrder(ctx, orderID)
	if errors.Is(err, ErrAttemptNotFound) {
		return o.orphanReturn(ctx, orderID)
	}
	if err != nil {
		return nil, errAttempt(err)
	}

	var res *CommitResult
	err = o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if a.OrderID != orderID {
			return newError(CodeNotFound, "this payment does not match your booking", nil)
		}
		var err error
		res, err = o.settle(ctx, a, EventGatewayReturn)
		return err
	})
	if errors.Is(err, ErrAttemptNotFound) {
		return o.orphanReturn(ctx, orderID)
	}
	return res, err
}

// orphanReturn answers a return for an order whose attempt has expired or
// been cancelled. A committed entry is still reported.
func (o *Orchestrator) orphanReturn(ctx context.Context, orderID string) (*CommitResult, error) {
	entry, err := o.ledger.Get(ctx, orderID)
	if err == nil {
		return &CommitResult{Status: payment.StatusPaid, Entry: entry, Duplicate: true}, nil
	}
	if !errors.Is(err, enrollment.ErrNotFound) {
		return nil, newError(CodeUnavailable, "we could not check your booking, please try again", err)
	}
	if res, verr := o.payments.Verify(ctx, orderID); verr == nil && res.Status == payment.StatusPaid {
		o.logger.Error("paid order has no booking attempt, refund required",
			zap.String("orderId", orderID), zap.String("transactionId", res.TransactionID))
	}
	return nil, newError(CodeNotFound, "your booking session has expired, please start again", err)
}

// ExpirePayment closes the payment window of an order. Stale or already
// settled orders are ignored.
func (o *Orchestrator) ExpirePayment(ctx context.Context, orderID string) error {
	attemptID, err := o.attempts.AttemptForOrder(ctx, orderID)
	if errors.Is(err, ErrAttemptNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	err = o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if a.OrderID != orderID {
			return nil
		}
		if o.unsettledAfterError(a) {
			// The gateway failed mid-verification; check once more so a
			// payment made in the meantime is still committed.
			_, err := o.settle(ctx, a, EventGatewayReturn)
			return err
		}
		if !o.pastDeadline(a) {
			return nil
		}
		_, err := o.settle(ctx, a, EventProceed)
		return err
	})
	var be *BookingError
	if errors.As(err, &be) {
		switch be.Code {
		case CodeTimeout, CodeCapacityExceeded, CodePaymentDeclined, CodeGatewayUnavailable:
			// Recorded on the attempt.
			return nil
		case CodeNotFound:
			return nil
		}
	}
	return err
}

// unsettledAfterError reports an attempt whose open session ended in
// failed(gateway) before its outcome was known.
func (o *Orchestrator) unsettledAfterError(a *models.BookingAttempt) bool {
	return a.State == models.StateFailed && a.FailureReason == models.FailureGateway && a.Session != nil
}

// replay reports an already committed attempt.
func (o *Orchestrator) replay(ctx context.Context, a *models.BookingAttempt) (*CommitResult, error) {
	entry, err := o.ledger.Get(ctx, a.OrderID)
	if err != nil {
		return nil, newError(CodeUnavailable, "we could not load your booking, please try again", err)
	}
	return &CommitResult{Attempt: a, Status: payment.StatusPaid, Entry: entry, Duplicate: true}, nil
}

// settle is the single verification routine behind Proceed, gateway returns
// and timeouts. Past the payment deadline it performs one last check: Paid
// commits, anything else ends in failed(timeout).
func (o *Orchestrator) settle(ctx context.Context, a *models.BookingAttempt, ev Event) (*CommitResult, error) {
	if a.State == models.StateCommitted {
		return o.replay(ctx, a)
	}
	if err := o.apply(a, ev); err != nil {
		return nil, errInvalidTransition(err)
	}
	timedOut := o.pastDeadline(a)
	if err := o.save(ctx, a); err != nil {
		return nil, err
	}

	res, err := o.payments.Verify(ctx, a.OrderID)
	if err != nil {
		if timedOut {
			return nil, o.timeout(ctx, a, err)
		}
		msg := "we could not confirm your payment, please retry"
		if failErr := o.fail(ctx, a, EventGatewayError, msg, err); failErr != nil {
			return nil, failErr
		}
		return nil, newError(CodeGatewayUnavailable, msg, err)
	}

	switch res.Status {
	case payment.StatusPaid:
		return o.commitPaid(ctx, a, res)
	case payment.StatusFailed:
		if timedOut {
			return nil, o.timeout(ctx, a, errors.New(res.Reason))
		}
		msg := "your payment was declined, you can retry"
		if failErr := o.fail(ctx, a, EventPaymentFailed, msg, errors.New(res.Reason)); failErr != nil {
			return nil, failErr
		}
		return nil, newError(CodePaymentDeclined, msg, nil)
	default:
		if timedOut {
			return nil, o.timeout(ctx, a, nil)
		}
		return &CommitResult{Attempt: a, Status: payment.StatusPending}, nil
	}
}

func (o *Orchestrator) timeout(ctx context.Context, a *models.BookingAttempt, cause error) error {
	msg := "the payment window has closed, you can retry"
	if err := o.fail(ctx, a, EventTimedOut, msg, cause); err != nil {
		return err
	}
	return newError(CodeTimeout, msg, cause)
}

func (o *Orchestrator) commitPaid(ctx context.Context, a *models.BookingAttempt, res *payment.VerifyResult) (*CommitResult, error) {
	a.TransactionID = res.TransactionID
	result, err := o.ledger.Commit(ctx, enrollment.CommitRequest{
		OrderID:       a.OrderID,
		StudentID:     a.Student.ID,
		WorkshopID:    a.WorkshopID,
		BatchID:       a.BatchID,
		Amount:        a.Amount,
		Currency:      a.Currency,
		TransactionID: res.TransactionID,
	})
	if err != nil {
		if errors.Is(err, enrollment.ErrCapacityExceeded) {
			o.ledger.ReportOverbooked(ctx, notification.OverbookedEvent{
				OrderID:       a.OrderID,
				AttemptID:     a.ID,
				StudentID:     a.Student.ID,
				WorkshopID:    a.WorkshopID,
				BatchID:       a.BatchID,
				Amount:        a.Amount,
				Currency:      a.Currency,
				TransactionID: res.TransactionID,
				OccurredAt:    o.now(),
			})
			msg := "this batch filled up before your seat was confirmed, a refund will follow"
			if failErr := o.fail(ctx, a, EventCapacityLost, msg, err); failErr != nil {
				return nil, failErr
			}
			return nil, newError(CodeCapacityExceeded, msg, err)
		}
		// Paid but not recorded: stay in verifying_payment so a later
		// return or proceed commits it.
		if saveErr := o.save(ctx, a); saveErr != nil {
			return nil, saveErr
		}
		return nil, newError(CodeUnavailable, "your payment is received and your seat is being confirmed, please check again shortly", err)
	}

	if err := o.apply(a, EventPaymentPaid); err != nil {
		return nil, errInvalidTransition(err)
	}
	a.LastError = ""
	if err := o.save(ctx, a); err != nil {
		return nil, err
	}
	return &CommitResult{Attempt: a, Status: payment.StatusPaid, Entry: result.Entry, Duplicate: result.Duplicate()}, nil
}
