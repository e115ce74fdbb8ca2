// FILE: database/repository/enrollment/indexes.go
package enrollmentRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes on the enrollments collection. The unique
// order id index is what makes Commit idempotent under concurrent callers.
func (r *mongoEnrollmentRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_order_id"),
		},
		{
			Keys:    bson.D{{Key: "batchId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("batch_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}},
			Options: options.Index().SetName("student_idx"),
		},
	}

	if _, err := r.enrollments.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create enrollment indexes: %w", err)
	}
	return nil
}
