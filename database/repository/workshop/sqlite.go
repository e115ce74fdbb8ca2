// File: database/repository/workshop/sqlite.go
package workshopRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workshophub/database"
	"workshophub/models"
)

type sqliteWorkshopRepo struct {
	db database.SQLDB
}

// NewSQLiteWorkshopRepo constructs a WorkshopRepository backed by SQLite.
func NewSQLiteWorkshopRepo(db database.SQLDB) WorkshopRepository {
	return &sqliteWorkshopRepo{db: db}
}

const batchColumns = "id, workshop_id, date, start_date, end_date, start_time, end_time, slots, enrolled, location, status, created_at"

func (r *sqliteWorkshopRepo) GetWorkshop(ctx context.Context, workshopID string) (*models.Workshop, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, title, price, currency, total_sessions, created_at FROM workshops WHERE id = ?", workshopID)

	var w models.Workshop
	var createdAt string
	err := row.Scan(&w.ID, &w.Title, &w.Price, &w.Currency, &w.TotalSessions, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkshopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workshop: %w", err)
	}
	w.CreatedAt = database.ParseTime(createdAt)

	batches, err := r.GetBatches(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	w.Batches = batches
	return &w, nil
}

func (r *sqliteWorkshopRepo) GetBatches(ctx context.Context, workshopID string) ([]models.Batch, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+batchColumns+" FROM batches WHERE workshop_id = ? ORDER BY id", workshopID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batches: %w", err)
	}
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *sqliteWorkshopRepo) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+batchColumns+" FROM batches WHERE id = ?", batchID)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *sqliteWorkshopRepo) SaveWorkshop(ctx context.Context, w models.Workshop) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workshops (id, title, price, currency, total_sessions, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			currency = excluded.currency,
			total_sessions = excluded.total_sessions`,
		w.ID, w.Title, w.Price, w.Currency, w.TotalSessions, database.FormatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save workshop: %w", err)
	}
	return nil
}

func (r *sqliteWorkshopRepo) SaveBatch(ctx context.Context, b models.Batch) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	status := b.Status
	if status == "" {
		status = models.BatchStatusOpen
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workshop_id = excluded.workshop_id,
			date = excluded.date,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			slots = excluded.slots,
			enrolled = excluded.enrolled,
			location = excluded.location,
			status = excluded.status`,
		b.ID, b.WorkshopID, b.Date, b.StartDate, b.EndDate, b.StartTime, b.EndTime,
		b.Slots, b.Enrolled, b.Location, string(status), database.FormatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(s scanner) (models.Batch, error) {
	var b models.Batch
	var status, createdAt string
	err := s.Scan(&b.ID, &b.WorkshopID, &b.Date, &b.StartDate, &b.EndDate, &b.StartTime, &b.EndTime,
		&b.Slots, &b.Enrolled, &b.Location, &status, &createdAt)
	if err != nil {
		return models.Batch{}, err
	}
	b.Status = models.ParseBatchStatus(status)
	b.CreatedAt = database.ParseTime(createdAt)
	return b, nil
}
