package booking

import (
	"context"
	"errors"

	workshopRepo "workshophub/database/repository/workshop"
	"workshophub/models"
	"workshophub/services/availability"

	"go.uber.org/zap"
)

func (o *Orchestrator) index(ctx context.Context, workshopID string) (*availability.Index, error) {
	w, err := o.loadWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	idx := availability.Build(w.Batches)
	if diags := idx.Diagnostics(); len(diags) > 0 {
		o.logger.Warn("batch dates could not be fully read",
			zap.String("workshopId", workshopID), zap.Strings("diagnostics", diags))
	}
	return idx, nil
}

// ListSelectableDays returns the days with at least one bookable seat.
func (o *Orchestrator) ListSelectableDays(ctx context.Context, workshopID string) ([]models.CalendarDay, error) {
	idx, err := o.index(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	return idx.SelectableDays(), nil
}

// ListBatches returns every batch covering day. Days outside the covered
// range yield an empty list.
func (o *Orchestrator) ListBatches(ctx context.Context, workshopID string, day models.CalendarDay) ([]BatchView, error) {
	idx, err := o.index(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	return newBatchViews(idx.ByDay(day)), nil
}

// ListUnresolvedBatches returns batches whose dates are still to be announced.
func (o *Orchestrator) ListUnresolvedBatches(ctx context.Context, workshopID string) ([]BatchView, error) {
	idx, err := o.index(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	return newBatchViews(idx.Unresolved()), nil
}

// freshBatch re-reads a batch of the attempt's workshop and checks it can
// take a seat right now.
func (o *Orchestrator) freshBatch(ctx context.Context, a *models.BookingAttempt, batchID string) (availability.Entry, error) {
	b, err := o.workshops.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, workshopRepo.ErrBatchNotFound) {
			return availability.Entry{}, newError(CodeNotFound, "this batch could not be found", err)
		}
		o.logger.Error("batch lookup failed", zap.String("batchId", batchID), zap.Error(err))
		return availability.Entry{}, newError(CodeUnavailable, "batch details are unavailable, please try again", err)
	}
	if b.WorkshopID != a.WorkshopID {
		return availability.Entry{}, newError(CodeNotFound, "this batch could not be found", nil)
	}

	entry, _ := availability.NewEntry(*b)
	if !entry.Bookable {
		return entry, newError(CodeInvalidInput, "this batch is not open for booking", nil)
	}
	if entry.Available == 0 {
		return entry, newError(CodeCapacityExceeded, "this batch is full, please choose another", nil)
	}
	return entry, nil
}

// SelectBatch attaches a batch with free seats to the attempt. Selection may
// be changed until payment starts.
func (o *Orchestrator) SelectBatch(ctx context.Context, attemptID, batchID string) (*BatchSelectionResult, error) {
	if batchID == "" {
		return nil, newError(CodeInvalidInput, "choose a batch", nil)
	}
	var res *BatchSelectionResult
	err := o.withAttempt(ctx, attemptID, func(a *models.BookingAttempt) error {
		if !Accepts(a.State, EventBatchSelected) {
			return errInvalidTransition(nil)
		}
		entry, err := o.freshBatch(ctx, a, batchID)
		if err != nil {
			return err
		}
		if err := o.apply(a, EventBatchSelected); err != nil {
			return errInvalidTransition(err)
		}
		a.BatchID = entry.Batch.ID
		a.LastError = ""
		if err := o.save(ctx, a); err != nil {
			return err
		}
		res = &BatchSelectionResult{Attempt: a, Batch: newBatchView(entry)}
		return nil
	})
	return res, err
}
