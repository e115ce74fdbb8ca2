package models

import "time"

// Workshop is read-only for the booking flow.
type Workshop struct {
	ID            string    `bson:"id" json:"id"`
	Title         string    `bson:"title" json:"title"`
	Price         int64     `bson:"price" json:"price"`       // minor currency units
	Currency      string    `bson:"currency" json:"currency"` // ISO 4217, lower case
	TotalSessions int       `bson:"totalSessions" json:"totalSessions"`
	Batches       []Batch   `bson:"-" json:"batches"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// IsFree reports whether the workshop skips the payment gateway.
func (w Workshop) IsFree() bool {
	return w.Price <= 0
}

// FindBatch returns the batch with the given id.
func (w Workshop) FindBatch(batchID string) (Batch, bool) {
	for _, b := range w.Batches {
		if b.ID == batchID {
			return b, true
		}
	}
	return Batch{}, false
}
