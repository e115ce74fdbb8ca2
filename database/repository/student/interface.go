// File: database/repository/student/interface.go
package studentRepo

import (
	"context"

	"workshophub/database"
	"workshophub/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// StudentRepository finds existing registrations by contact. Lookups take
// already-normalized values: a lowercase email or a bare 10-digit phone.
type StudentRepository interface {
	FindByEmail(ctx context.Context, email string) ([]models.Student, error)
	FindByPhone(ctx context.Context, phone string) ([]models.Student, error)
	Create(ctx context.Context, s models.Student) error
}

type mongoStudentRepo struct {
	coll *mongo.Collection
}

// NewMongoStudentRepo constructs a MongoDB StudentRepository.
func NewMongoStudentRepo() StudentRepository {
	return &mongoStudentRepo{coll: database.MongoDatabase().Collection("students")}
}

// PhoneVariants lists the stored spellings a normalized phone may have been
// registered under.
func PhoneVariants(digits string) []string {
	return []string{digits, "+91" + digits, "91" + digits, "0" + digits, "+91 " + digits}
}
