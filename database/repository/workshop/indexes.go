// FILE: database/repository/workshop/indexes.go
package workshopRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes on the workshops and batches collections.
func (r *mongoWorkshopRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.workshops.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_id"),
	}); err != nil {
		return fmt.Errorf("failed to create workshop indexes: %w", err)
	}

	batchIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// Primary query pattern: all batches of a workshop
		{
			Keys:    bson.D{{Key: "workshopId", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetName("workshop_batch_idx"),
		},
	}
	if _, err := r.batches.Indexes().CreateMany(ctx, batchIndexes); err != nil {
		return fmt.Errorf("failed to create batch indexes: %w", err)
	}
	return nil
}
