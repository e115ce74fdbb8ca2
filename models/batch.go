package models

import (
	"strings"
	"time"
)

// BatchStatus is the lifecycle status of a batch as recorded by the store.
type BatchStatus string

const (
	BatchStatusOpen      BatchStatus = "open"
	BatchStatusClosed    BatchStatus = "closed"
	BatchStatusCancelled BatchStatus = "cancelled"
	BatchStatusUnknown   BatchStatus = "unknown"
)

// ParseBatchStatus maps the loosely-typed stored value onto a known status.
// Anything unrecognized becomes BatchStatusUnknown.
func ParseBatchStatus(raw string) BatchStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "active", "upcoming", "scheduled":
		return BatchStatusOpen
	case "closed", "completed", "full":
		return BatchStatusClosed
	case "cancelled", "canceled":
		return BatchStatusCancelled
	default:
		return BatchStatusUnknown
	}
}

// IsBookable reports whether seats in a batch of this status may be sold. An
// unset status counts as unknown.
func (s BatchStatus) IsBookable() bool {
	return s == BatchStatusOpen || s == BatchStatusUnknown || s == ""
}

// Batch is a scheduled occurrence of a workshop. Date and time fields keep the
// raw encodings found in the store; use dates.NormalizeBatch to read them.
type Batch struct {
	ID         string      `bson:"id" json:"id"`
	WorkshopID string      `bson:"workshopId" json:"workshopId"`
	Date       string      `bson:"date,omitempty" json:"date,omitempty"`           // "2025-03-15", "15 March 2025", "TBD"
	StartDate  string      `bson:"startDate,omitempty" json:"startDate,omitempty"` // range start, same encodings
	EndDate    string      `bson:"endDate,omitempty" json:"endDate,omitempty"`
	StartTime  string      `bson:"startTime,omitempty" json:"startTime,omitempty"` // "10:00", "10:00 AM", "TBD"
	EndTime    string      `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Slots      int         `bson:"slots" json:"slots"`
	Enrolled   int         `bson:"enrolled" json:"enrolled"`
	Location   string      `bson:"location,omitempty" json:"location,omitempty"`
	Status     BatchStatus `bson:"status" json:"status"`
	CreatedAt  time.Time   `bson:"createdAt" json:"createdAt"`
}

// IsFull reports enrolled == slots (or beyond, for corrupt rows).
func (b Batch) IsFull() bool {
	return b.Enrolled >= b.Slots
}
