package dates

import (
	"fmt"
	"strings"
	"time"

	"workshophub/models"
)

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
	"15.04",
}

// NormalizeTime resolves a batch's start/end time pair. A missing end time
// collapses the window onto the start time.
func NormalizeTime(start, end string) (models.TimeWindow, string) {
	startMin, startState := parseClock(start)
	endMin, endState := parseClock(end)

	switch {
	case startState == stateBlank && endState == stateBlank:
		return models.TimeWindow{}, ""
	case startState == stateInvalid || endState == stateInvalid:
		return models.TimeWindow{}, fmt.Sprintf("unrecognized time window %q-%q", start, end)
	case startState == stateBlank:
		return models.TimeWindow{}, fmt.Sprintf("end time %q without a start time", end)
	case endState == stateBlank:
		return models.TimeWindow{Resolved: true, Start: startMin, End: startMin}, ""
	case endMin < startMin:
		return models.TimeWindow{}, fmt.Sprintf("end time %q precedes start time %q", end, start)
	}
	return models.TimeWindow{Resolved: true, Start: startMin, End: endMin}, ""
}

func parseClock(raw string) (int, parseState) {
	s := strings.ToUpper(clean(raw))
	if isBlank(strings.ToLower(s)) {
		return 0, stateBlank
	}
	s = strings.ReplaceAll(s, ".M.", "M")
	s = strings.ReplaceAll(s, "A.M", "AM")
	s = strings.ReplaceAll(s, "P.M", "PM")
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), stateParsed
		}
	}
	return 0, stateInvalid
}
