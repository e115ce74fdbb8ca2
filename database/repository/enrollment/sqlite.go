// File: database/repository/enrollment/sqlite.go
package enrollmentRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"workshophub/database"
	"workshophub/models"
)

type sqliteEnrollmentRepo struct {
	db database.SQLDB
}

// NewSQLiteEnrollmentRepo constructs an EnrollmentRepository backed by SQLite.
func NewSQLiteEnrollmentRepo(db database.SQLDB) EnrollmentRepository {
	return &sqliteEnrollmentRepo{db: db}
}

const entryColumns = "order_id, student_id, workshop_id, batch_id, amount, currency, payment_status, transaction_id, created_at, updated_at"

func (r *sqliteEnrollmentRepo) Commit(ctx context.Context, entry models.EnrollmentEntry) (*models.EnrollmentEntry, CommitOutcome, error) {
	now := time.Now()
	entry.CreatedAt, entry.UpdatedAt = now, now

	existing, err := r.commitTx(ctx, entry)
	switch {
	case err == nil && existing != nil:
		return existing, AlreadyExists, nil
	case err == nil:
		return &entry, Created, nil
	case isUniqueViolation(err):
		// The transaction is rolled back by now, so the read can use the pool.
		prior, getErr := r.GetByOrderID(ctx, entry.OrderID)
		if getErr != nil {
			return nil, 0, fmt.Errorf("enrollment transaction failed: %w", err)
		}
		return prior, AlreadyExists, nil
	}
	return nil, 0, err
}

// commitTx returns the stored entry when the order id was already committed.
func (r *sqliteEnrollmentRepo) commitTx(ctx context.Context, entry models.EnrollmentEntry) (*models.EnrollmentEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	prior, err := scanEntry(tx.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM enrollments WHERE order_id = ?", entry.OrderID))
	if err == nil {
		return &prior, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE batches SET enrolled = enrolled + 1 WHERE id = ? AND enrolled < slots", entry.BatchID)
	if err != nil {
		return nil, fmt.Errorf("seat decrement failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("seat decrement failed: %w", err)
	}
	if affected == 0 {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches WHERE id = ?", entry.BatchID).Scan(&count); err != nil {
			return nil, fmt.Errorf("batch lookup failed: %w", err)
		}
		if count == 0 {
			return nil, ErrBatchNotFound
		}
		return nil, ErrCapacityExceeded
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO enrollments ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.OrderID, entry.StudentID, entry.WorkshopID, entry.BatchID, entry.Amount, entry.Currency,
		string(entry.PaymentStatus), entry.TransactionID,
		database.FormatTime(entry.CreatedAt), database.FormatTime(entry.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert enrollment failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return nil, nil
}

func (r *sqliteEnrollmentRepo) GetByOrderID(ctx context.Context, orderID string) (*models.EnrollmentEntry, error) {
	entry, err := scanEntry(r.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM enrollments WHERE order_id = ?", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enrollment: %w", err)
	}
	return &entry, nil
}

func (r *sqliteEnrollmentRepo) ListByBatch(ctx context.Context, batchID string) ([]models.EnrollmentEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM enrollments WHERE batch_id = ? ORDER BY created_at", batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var entries []models.EnrollmentEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.EnrollmentEntry, error) {
	var e models.EnrollmentEntry
	var status, createdAt, updatedAt string
	err := s.Scan(&e.OrderID, &e.StudentID, &e.WorkshopID, &e.BatchID, &e.Amount, &e.Currency,
		&status, &e.TransactionID, &createdAt, &updatedAt)
	if err != nil {
		return models.EnrollmentEntry{}, err
	}
	e.PaymentStatus = models.EnrollmentPaymentStatus(status)
	e.CreatedAt = database.ParseTime(createdAt)
	e.UpdatedAt = database.ParseTime(updatedAt)
	return e, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
