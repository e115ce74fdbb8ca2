// Package dates turns the loosely-encoded date and time fields stored on
// batches into canonical calendar values. Every component that reads a batch's
// schedule goes through NormalizeBatch.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"workshophub/models"
)

// Layouts are the single-day encodings accepted after whitespace, weekday and
// ordinal cleanup. Each one also renders a day that parses back to itself.
var Layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2-Jan-2006",
}

// timestampLayouts carry a time of day; only the date part is kept.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var (
	weekdayPrefix = regexp.MustCompile(`(?i)^(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)[a-z]*\.?,?\s+`)
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
)

// MaxRangeDays bounds a start/end range. Longer ranges are treated as
// unresolved, as they are almost always a mistyped end date.
const MaxRangeDays = 366

// Raw is the union of shapes a batch date can take: a single string, a
// start/end pair, or nothing at all.
type Raw struct {
	Date  string
	Start string
	End   string
}

// Result is a normalized span. Diagnostic is set when some input was present
// but could not be used; it is meant for logs, never for attendees.
type Result struct {
	Span       models.DateSpan
	Diagnostic string
}

type parseState int

const (
	stateBlank parseState = iota // empty or TBD
	stateParsed
	stateInvalid
)

// Normalize resolves a raw batch date. It never fails: anything it cannot read
// becomes an unresolved span.
func Normalize(raw Raw) Result {
	var diags []string

	if strings.TrimSpace(raw.Date) != "" {
		day, st := parseDay(raw.Date)
		switch st {
		case stateParsed:
			return Result{Span: models.SingleDay(day)}
		case stateInvalid:
			diags = append(diags, fmt.Sprintf("unrecognized date %q", raw.Date))
		}
	}

	span, pairDiags := normalizePair(raw.Start, raw.End)
	diags = append(diags, pairDiags...)
	return Result{Span: span, Diagnostic: strings.Join(diags, "; ")}
}

// NormalizeString resolves a single date field.
func NormalizeString(s string) Result {
	return Normalize(Raw{Date: s})
}

func normalizePair(start, end string) (models.DateSpan, []string) {
	startDay, startState := parseDay(start)
	endDay, endState := parseDay(end)

	switch {
	case startState == stateParsed && endState == stateParsed:
		if endDay.Before(startDay) {
			return models.UnresolvedSpan(), []string{
				fmt.Sprintf("end date %s precedes start date %s", endDay, startDay),
			}
		}
		span := models.DayRange(startDay, endDay)
		if span.Len() > MaxRangeDays {
			return models.UnresolvedSpan(), []string{
				fmt.Sprintf("range %s to %s is longer than %d days", startDay, endDay, MaxRangeDays),
			}
		}
		return span, nil

	case startState == stateParsed:
		return models.SingleDay(startDay), sideDiagnostic("end", end, endState)

	case endState == stateParsed:
		return models.SingleDay(endDay), sideDiagnostic("start", start, startState)
	}

	var diags []string
	if startState == stateInvalid {
		diags = append(diags, fmt.Sprintf("unrecognized start date %q", start))
	}
	if endState == stateInvalid {
		diags = append(diags, fmt.Sprintf("unrecognized end date %q", end))
	}
	return models.UnresolvedSpan(), diags
}

// sideDiagnostic reports the unusable half of a start/end pair. A missing half
// is a plain single-day batch and says nothing.
func sideDiagnostic(side, raw string, st parseState) []string {
	switch {
	case st == stateInvalid:
		return []string{fmt.Sprintf("unrecognized %s date %q, using single day", side, raw)}
	case strings.TrimSpace(raw) != "":
		return []string{fmt.Sprintf("%s date is %q, using single day", side, raw)}
	}
	return nil
}

func parseDay(raw string) (models.CalendarDay, parseState) {
	s := clean(raw)
	if isBlank(s) {
		return models.CalendarDay{}, stateBlank
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewCalendarDay(t), stateParsed
		}
	}

	s = weekdayPrefix.ReplaceAllString(s, "")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewCalendarDay(t), stateParsed
		}
	}
	return models.CalendarDay{}, stateInvalid
}

// clean trims and collapses runs of whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBlank(s string) bool {
	if s == "" {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "tbd") || lower == "null" || lower == "n/a"
}

// Format renders a day in the canonical ISO layout.
func Format(day models.CalendarDay) string {
	return day.String()
}

// Render renders a day in any layout, typically one of Layouts.
func Render(day models.CalendarDay, layout string) string {
	return day.Time().Format(layout)
}
