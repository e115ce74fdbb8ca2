// File: database/repository/enrollment/transaction.go
package enrollmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshophub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (r *mongoEnrollmentRepo) Commit(ctx context.Context, entry models.EnrollmentEntry) (*models.EnrollmentEntry, CommitOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	entry.CreatedAt, entry.UpdatedAt = now, now

	client := r.enrollments.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return nil, 0, fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var existing *models.EnrollmentEntry
	txnFn := func(sc mongo.SessionContext) error {
		var prior models.EnrollmentEntry
		err := r.enrollments.FindOne(sc, bson.M{"orderId": entry.OrderID}).Decode(&prior)
		if err == nil {
			existing = &prior
			return nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("idempotency lookup failed: %w", err)
		}

		res, err := r.batches.UpdateOne(sc, seatFilter(entry.BatchID), seatUpdate())
		if err != nil {
			return fmt.Errorf("seat decrement failed: %w", err)
		}
		if res.MatchedCount == 0 {
			count, err := r.batches.CountDocuments(sc, bson.M{"id": entry.BatchID})
			if err != nil {
				return fmt.Errorf("batch lookup failed: %w", err)
			}
			if count == 0 {
				return ErrBatchNotFound
			}
			return ErrCapacityExceeded
		}

		if _, err := r.enrollments.InsertOne(sc, entry); err != nil {
			return fmt.Errorf("insert enrollment failed: %w", err)
		}
		return nil
	}

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})

	return resolveCommit(ctx, err, &entry, existing, r.GetByOrderID)
}

// seatFilter matches the batch only while enrolled < slots.
func seatFilter(batchID string) bson.M {
	return bson.M{
		"id":    batchID,
		"$expr": bson.M{"$lt": bson.A{"$enrolled", "$slots"}},
	}
}

func seatUpdate() bson.M {
	return bson.M{"$inc": bson.M{"enrolled": 1}}
}

// resolveCommit maps the transaction result to a commit outcome. A duplicate
// key means a concurrent commit of the same order won the insert; its entry is
// reported instead.
func resolveCommit(ctx context.Context, err error, entry, existing *models.EnrollmentEntry,
	lookup func(context.Context, string) (*models.EnrollmentEntry, error)) (*models.EnrollmentEntry, CommitOutcome, error) {
	switch {
	case err == nil && existing != nil:
		return existing, AlreadyExists, nil
	case err == nil:
		return entry, Created, nil
	case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrBatchNotFound):
		return nil, 0, err
	case mongo.IsDuplicateKeyError(err):
		prior, getErr := lookup(ctx, entry.OrderID)
		if getErr != nil {
			return nil, 0, fmt.Errorf("enrollment transaction failed: %w", err)
		}
		return prior, AlreadyExists, nil
	}
	return nil, 0, fmt.Errorf("enrollment transaction failed: %w", err)
}
