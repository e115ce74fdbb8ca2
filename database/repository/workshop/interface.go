// File: database/repository/workshop/interface.go
package workshopRepo

import (
	"context"
	"errors"

	"workshophub/database"
	"workshophub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrWorkshopNotFound = errors.New("workshop not found")
	ErrBatchNotFound    = errors.New("batch not found")
)

// WorkshopRepository reads workshops and their batches. Save methods exist for
// seeding and fixtures; the booking flow never writes through this interface.
type WorkshopRepository interface {
	GetWorkshop(ctx context.Context, workshopID string) (*models.Workshop, error)
	GetBatches(ctx context.Context, workshopID string) ([]models.Batch, error)
	GetBatch(ctx context.Context, batchID string) (*models.Batch, error)
	SaveWorkshop(ctx context.Context, w models.Workshop) error
	SaveBatch(ctx context.Context, b models.Batch) error
}

type mongoWorkshopRepo struct {
	workshops *mongo.Collection
	batches   *mongo.Collection
}

// NewMongoWorkshopRepo constructs a MongoDB WorkshopRepository.
func NewMongoWorkshopRepo() WorkshopRepository {
	db := database.MongoDatabase()
	return &mongoWorkshopRepo{
		workshops: db.Collection("workshops"),
		batches:   db.Collection("batches"),
	}
}

// normalizeBatch maps loosely-typed stored values onto their typed form.
func normalizeBatch(b *models.Batch) {
	b.Status = models.ParseBatchStatus(string(b.Status))
}
