package models

// SpanKind tags the variant held by a DateSpan.
type SpanKind string

const (
	SpanUnresolved SpanKind = "unresolved"
	SpanSingle     SpanKind = "single"
	SpanRange      SpanKind = "range"
)

// DateSpan is the canonical date of a batch: a single day, an inclusive range
// of days, or unresolved (TBD). It is derived from a Batch and never stored on
// its own.
type DateSpan struct {
	Kind  SpanKind    `json:"kind"`
	Start CalendarDay `json:"start,omitzero"`
	End   CalendarDay `json:"end,omitzero"`
}

func SingleDay(d CalendarDay) DateSpan {
	return DateSpan{Kind: SpanSingle, Start: d, End: d}
}

// DayRange builds a range span. A range whose endpoints are the same day
// collapses to a single-day span; end must not precede start.
func DayRange(start, end CalendarDay) DateSpan {
	if start == end {
		return SingleDay(start)
	}
	return DateSpan{Kind: SpanRange, Start: start, End: end}
}

func UnresolvedSpan() DateSpan {
	return DateSpan{Kind: SpanUnresolved}
}

func (s DateSpan) IsResolved() bool {
	return s.Kind == SpanSingle || s.Kind == SpanRange
}

// Contains reports whether d falls inside the span. Unresolved spans contain nothing.
func (s DateSpan) Contains(d CalendarDay) bool {
	if !s.IsResolved() {
		return false
	}
	return !d.Before(s.Start) && !d.After(s.End)
}

// Len is the number of days covered.
func (s DateSpan) Len() int {
	if !s.IsResolved() {
		return 0
	}
	return int(s.End.Time().Sub(s.Start.Time()).Hours()/24) + 1
}

// Days expands the span into the inclusive list of days it covers.
func (s DateSpan) Days() []CalendarDay {
	n := s.Len()
	if n == 0 {
		return nil
	}
	days := make([]CalendarDay, 0, n)
	for d := s.Start; !d.After(s.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (s DateSpan) String() string {
	switch s.Kind {
	case SpanSingle:
		return s.Start.String()
	case SpanRange:
		return s.Start.String() + " to " + s.End.String()
	default:
		return "TBD"
	}
}
