package booking

import (
	"context"

	"workshophub/models"
	"workshophub/services/verification"

	"go.uber.org/zap"
)

// StartVerification submits a contact for an attempt, creating the attempt
// when req.AttemptID is empty. NotFound and Invalid keep the attempt in
// verifying so the attendee can try again.
func (o *Orchestrator) StartVerification(ctx context.Context, req StartRequest) (*VerificationResult, error) {
	if req.AttemptID == "" {
		if req.WorkshopID == "" {
			return nil, newError(CodeInvalidInput, "choose a workshop first", nil)
		}
		w, err := o.loadWorkshop(ctx, req.WorkshopID)
		if err != nil {
			return nil, err
		}
		now := o.now()
		a := &models.BookingAttempt{
			ID:         o.newID(),
			State:      models.StateIdle,
			WorkshopID: w.ID,
			Amount:     w.Price,
			Currency:   w.Currency,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if a.Currency == "" {
			a.Currency = o.cfg.Currency
		}
		o.logger.Info("booking attempt started", zap.String("attemptId", a.ID), zap.String("workshopId", w.ID))
		return o.verifyContact(ctx, a, req)
	}

	var res *VerificationResult
	err := o.withAttempt(ctx, req.AttemptID, func(a *models.BookingAttempt) error {
		var err error
		res, err = o.verifyContact(ctx, a, req)
		return err
	})
	return res, err
}

func (o *Orchestrator) verifyContact(ctx context.Context, a *models.BookingAttempt, req StartRequest) (*VerificationResult, error) {
	// 1. Enter verifying.
	if err := o.apply(a, EventContactSubmitted); err != nil {
		return nil, errInvalidTransition(err)
	}
	a.LastError = ""

	// 2. Check the contact.
	result, err := o.gate.Verify(ctx, req.Method, req.Value)
	if err != nil {
		o.logger.Error("contact verification failed", zap.String("attemptId", a.ID), zap.Error(err))
		a.LastError = "we could not check your details right now, please try again"
		if saveErr := o.save(ctx, a); saveErr != nil {
			return nil, saveErr
		}
		return nil, newError(CodeUnavailable, a.LastError, err)
	}
	if result.Outcome != verification.Found {
		a.LastError = result.Reason
		if err := o.save(ctx, a); err != nil {
			return nil, err
		}
		return &VerificationResult{Attempt: a, Outcome: result.Outcome, Reason: result.Reason}, nil
	}

	// 3. Attach the student and look at the workshop's batches.
	a.Student = result.Student
	w, err := o.loadWorkshop(ctx, a.WorkshopID)
	if err != nil {
		if saveErr := o.save(ctx, a); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	}

	ev := EventContactVerified
	if len(w.Batches) == 0 {
		ev = EventNoBatches
	}
	if err := o.apply(a, ev); err != nil {
		return nil, errInvalidTransition(err)
	}
	if err := o.save(ctx, a); err != nil {
		return nil, err
	}
	o.logger.Info("contact verified",
		zap.String("attemptId", a.ID),
		zap.String("studentId", a.Student.ID),
		zap.String("state", string(a.State)))
	return &VerificationResult{Attempt: a, Outcome: verification.Found}, nil
}
