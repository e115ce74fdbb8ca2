// File: database/repository/workshop/crud.go
package workshopRepo

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

func (r *mongoWorkshopRepo) GetWorkshop(ctx context.Context, workshopID string) (*models.Workshop, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var w models.Workshop
	err := r.workshops.FindOne(ctx, bson.M{"id": workshopID}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrWorkshopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workshop: %w", err)
	}

	batches, err := r.GetBatches(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	w.Batches = batches
	return &w, nil
}

func (r *mongoWorkshopRepo) GetBatches(ctx context.Context, workshopID string) ([]models.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := r.batches.Find(ctx, bson.M{"workshopId": workshopID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batches: %w", err)
	}
	defer cursor.Close(ctx)

	var batches []models.Batch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}
	for i := range batches {
		normalizeBatch(&batches[i])
	}
	return batches, nil
}

func (r *mongoWorkshopRepo) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Batch
	err := r.batches.FindOne(ctx, bson.M{"id": batchID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch: %w", err)
	}
	normalizeBatch(&b)
	return &b, nil
}

func (r *mongoWorkshopRepo) SaveWorkshop(ctx context.Context, w models.Workshop) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	_, err := r.workshops.ReplaceOne(ctx, bson.M{"id": w.ID}, w, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save workshop: %w", err)
	}
	return nil
}

func (r *mongoWorkshopRepo) SaveBatch(ctx context.Context, b models.Batch) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := r.batches.ReplaceOne(ctx, bson.M{"id": b.ID}, b, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}
