// File: database/repository/student/queries.go
package studentRepo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"workshophub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoStudentRepo) FindByEmail(ctx context.Context, email string) ([]models.Student, error) {
	return r.find(ctx, emailFilter(email))
}

func (r *mongoStudentRepo) FindByPhone(ctx context.Context, phone string) ([]models.Student, error) {
	return r.find(ctx, phoneFilter(phone))
}

// emailFilter matches stored emails case-insensitively, ignoring surrounding
// whitespace.
func emailFilter(email string) bson.M {
	return bson.M{"email": primitive.Regex{Pattern: "^\\s*" + regexp.QuoteMeta(email) + "\\s*$", Options: "i"}}
}

func phoneFilter(phone string) bson.M {
	return bson.M{"phone": bson.M{"$in": PhoneVariants(phone)}}
}

func (r *mongoStudentRepo) find(ctx context.Context, filter bson.M) ([]models.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer cursor.Close(ctx)

	var students []models.Student
	if err := cursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return students, nil
}

func (r *mongoStudentRepo) Create(ctx context.Context, s models.Student) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}
