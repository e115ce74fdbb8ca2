// Package availability builds a per-workshop calendar of batches and answers
// which days can be picked. An Index is an immutable snapshot of the batches it
// was built from; rebuild it after every store read.
package availability

import (
	"sort"

	"workshophub/models"
	"workshophub/services/dates"
)

// Entry is a batch together with everything derived from it.
type Entry struct {
	Batch     models.Batch      `json:"batch"`
	Span      models.DateSpan   `json:"span"`
	Window    models.TimeWindow `json:"window"`
	Available int               `json:"available"`
	Full      bool              `json:"full"`
	TBD       bool              `json:"tbd"`
	Bookable  bool              `json:"bookable"`
}

// Selectable reports whether a seat in this batch can be booked right now.
func (e Entry) Selectable() bool {
	return e.Bookable && e.Available > 0
}

// DayRange is the inclusive [First, Last] range of days covered by resolved batches.
type DayRange struct {
	First models.CalendarDay `json:"first"`
	Last  models.CalendarDay `json:"last"`
}

func (r DayRange) Contains(d models.CalendarDay) bool {
	return !d.Before(r.First) && !d.After(r.Last)
}

type Index struct {
	byDay       map[models.CalendarDay][]Entry
	days        []models.CalendarDay
	unresolved  []Entry
	byID        map[string]Entry
	covered     DayRange
	hasCovered  bool
	diagnostics []string
}

// AvailableSeats is slots minus enrolled, floored at zero.
func AvailableSeats(b models.Batch) int {
	if seats := b.Slots - b.Enrolled; seats > 0 {
		return seats
	}
	return 0
}

// NewEntry derives an Entry from a stored batch.
func NewEntry(b models.Batch) (Entry, []string) {
	span, window, diags := dates.NormalizeBatch(b)
	seats := AvailableSeats(b)
	return Entry{
		Batch:     b,
		Span:      span,
		Window:    window,
		Available: seats,
		Full:      seats == 0,
		TBD:       !span.IsResolved(),
		Bookable:  b.Status.IsBookable(),
	}, diags
}

// Build indexes batches by every day they cover. It performs no I/O.
func Build(batches []models.Batch) *Index {
	idx := &Index{
		byDay: make(map[models.CalendarDay][]Entry),
		byID:  make(map[string]Entry, len(batches)),
	}

	for _, b := range batches {
		entry, diags := NewEntry(b)
		idx.diagnostics = append(idx.diagnostics, diags...)
		idx.byID[b.ID] = entry

		if entry.TBD {
			idx.unresolved = append(idx.unresolved, entry)
			continue
		}
		for _, d := range entry.Span.Days() {
			idx.byDay[d] = append(idx.byDay[d], entry)
		}
		idx.extend(entry.Span)
	}

	for d, entries := range idx.byDay {
		sortEntries(entries)
		idx.days = append(idx.days, d)
	}
	sort.Slice(idx.days, func(i, j int) bool { return idx.days[i].Before(idx.days[j]) })
	sortEntries(idx.unresolved)
	return idx
}

func (idx *Index) extend(span models.DateSpan) {
	if !idx.hasCovered {
		idx.covered = DayRange{First: span.Start, Last: span.End}
		idx.hasCovered = true
		return
	}
	if span.Start.Before(idx.covered.First) {
		idx.covered.First = span.Start
	}
	if span.End.After(idx.covered.Last) {
		idx.covered.Last = span.End
	}
}

// sortEntries orders by start time, then id. Unresolved windows sort last.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Window, entries[j].Window
		if a.Resolved != b.Resolved {
			return a.Resolved
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return entries[i].Batch.ID < entries[j].Batch.ID
	})
}

// ByDay returns the batches running on d. Days outside the covered range
// return an empty list.
func (idx *Index) ByDay(d models.CalendarDay) []Entry {
	entries := idx.byDay[d]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Unresolved returns TBD batches.
func (idx *Index) Unresolved() []Entry {
	out := make([]Entry, len(idx.unresolved))
	copy(out, idx.unresolved)
	return out
}

// CoveredRange is [min start, max end] over resolved batches. The second
// return is false when no batch has a known date.
func (idx *Index) CoveredRange() (DayRange, bool) {
	return idx.covered, idx.hasCovered
}

// IsSelectable reports whether d is inside the covered range and carries at
// least one bookable batch with a free seat.
func (idx *Index) IsSelectable(d models.CalendarDay) bool {
	if !idx.hasCovered || !idx.covered.Contains(d) {
		return false
	}
	for _, e := range idx.byDay[d] {
		if e.Selectable() {
			return true
		}
	}
	return false
}

// Days lists every day that has at least one batch, ascending.
func (idx *Index) Days() []models.CalendarDay {
	out := make([]models.CalendarDay, len(idx.days))
	copy(out, idx.days)
	return out
}

// SelectableDays lists the selectable days, ascending.
func (idx *Index) SelectableDays() []models.CalendarDay {
	out := make([]models.CalendarDay, 0, len(idx.days))
	for _, d := range idx.days {
		if idx.IsSelectable(d) {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds a batch by id, resolved or not.
func (idx *Index) Lookup(batchID string) (Entry, bool) {
	e, ok := idx.byID[batchID]
	return e, ok
}

// Len is the number of batches indexed.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// Diagnostics collects normalization problems seen while building.
func (idx *Index) Diagnostics() []string {
	return idx.diagnostics
}
