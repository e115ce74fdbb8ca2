package booking

import (
	"workshophub/models"
	"workshophub/services/availability"
)

// BatchView is a batch as shown to an attendee.
type BatchView struct {
	ID         string             `json:"id"`
	Date       string             `json:"date"`
	Time       string             `json:"time"`
	Span       models.DateSpan    `json:"span"`
	Window     models.TimeWindow  `json:"window"`
	Location   string             `json:"location,omitempty"`
	Status     models.BatchStatus `json:"status"`
	Slots      int                `json:"slots"`
	Available  int                `json:"available"`
	Full       bool               `json:"full"`
	TBD        bool               `json:"tbd"`
	Selectable bool               `json:"selectable"`
}

func newBatchView(e availability.Entry) BatchView {
	return BatchView{
		ID:         e.Batch.ID,
		Date:       e.Span.String(),
		Time:       e.Window.String(),
		Span:       e.Span,
		Window:     e.Window,
		Location:   e.Batch.Location,
		Status:     e.Batch.Status,
		Slots:      e.Batch.Slots,
		Available:  e.Available,
		Full:       e.Full,
		TBD:        e.TBD,
		Selectable: e.Selectable(),
	}
}

func newBatchViews(entries []availability.Entry) []BatchView {
	views := make([]BatchView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newBatchView(e))
	}
	return views
}
