// File: database/repository/student/sqlite.go
package studentRepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workshophub/database"
	"workshophub/models"

	"github.com/google/uuid"
)

type sqliteStudentRepo struct {
	db database.SQLDB
}

// NewSQLiteStudentRepo constructs a StudentRepository backed by SQLite.
func NewSQLiteStudentRepo(db database.SQLDB) StudentRepository {
	return &sqliteStudentRepo{db: db}
}

const studentQuery = "SELECT id, name, email, phone, created_at FROM students WHERE "

func (r *sqliteStudentRepo) FindByEmail(ctx context.Context, email string) ([]models.Student, error) {
	return r.find(ctx, "lower(trim(email)) = ?", email)
}

func (r *sqliteStudentRepo) FindByPhone(ctx context.Context, phone string) ([]models.Student, error) {
	variants := PhoneVariants(phone)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(variants)), ", ")
	args := make([]any, len(variants))
	for i, v := range variants {
		args[i] = v
	}
	return r.find(ctx, "trim(phone) IN ("+placeholders+")", args...)
}

func (r *sqliteStudentRepo) find(ctx context.Context, where string, args ...any) ([]models.Student, error) {
	rows, err := r.db.QueryContext(ctx, studentQuery+where+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var s models.Student
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		s.CreatedAt = database.ParseTime(createdAt)
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *sqliteStudentRepo) Create(ctx context.Context, s models.Student) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO students (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.Name, s.Email, s.Phone, database.FormatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}
