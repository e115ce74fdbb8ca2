// File: database/repository/enrollment/interface.go
package enrollmentRepo

import (
	"context"
	"errors"

	"workshophub/database"
	"workshophub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrCapacityExceeded means the guarded decrement matched no row: the batch
	// was full at commit time. Nothing was written.
	ErrCapacityExceeded = errors.New("batch has no remaining capacity")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrNotFound         = errors.New("enrollment not found")
)

// CommitOutcome distinguishes a fresh enrollment from a replayed order id.
type CommitOutcome int

const (
	Created CommitOutcome = iota + 1
	AlreadyExists
)

func (o CommitOutcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	}
	return "unknown"
}

// EnrollmentRepository persists enrollment entries. Commit inserts the entry
// and takes one seat from its batch in the same transaction; the order id is
// the idempotency key.
type EnrollmentRepository interface {
	Commit(ctx context.Context, entry models.EnrollmentEntry) (*models.EnrollmentEntry, CommitOutcome, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.EnrollmentEntry, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.EnrollmentEntry, error)
}

type mongoEnrollmentRepo struct {
	enrollments *mongo.Collection
	batches     *mongo.Collection
}

// NewMongoEnrollmentRepo constructs a MongoDB EnrollmentRepository. The
// deployment must be a replica set for transactions.
func NewMongoEnrollmentRepo() EnrollmentRepository {
	db := database.MongoDatabase()
	return &mongoEnrollmentRepo{
		enrollments: db.Collection("enrollments"),
		batches:     db.Collection("batches"),
	}
}
