// File: database/repository/enrollment/queries.go
package enrollmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshophub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoEnrollmentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.EnrollmentEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var entry models.EnrollmentEntry
	err := r.enrollments.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enrollment: %w", err)
	}
	return &entry, nil
}

func (r *mongoEnrollmentRepo) ListByBatch(ctx context.Context, batchID string) ([]models.EnrollmentEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.enrollments.Find(ctx, bson.M{"batchId": batchID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.EnrollmentEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode enrollments: %w", err)
	}
	return entries, nil
}
