package dates

import (
	"fmt"

	"workshophub/models"
)

// NormalizeBatch derives the canonical span and time window of a batch.
// Diagnostics name the batch so they can be logged as-is.
func NormalizeBatch(b models.Batch) (models.DateSpan, models.TimeWindow, []string) {
	var diags []string

	res := Normalize(Raw{Date: b.Date, Start: b.StartDate, End: b.EndDate})
	if res.Diagnostic != "" {
		diags = append(diags, fmt.Sprintf("batch %s: %s", b.ID, res.Diagnostic))
	}

	window, diag := NormalizeTime(b.StartTime, b.EndTime)
	if diag != "" {
		diags = append(diags, fmt.Sprintf("batch %s: %s", b.ID, diag))
	}
	return res.Span, window, diags
}
