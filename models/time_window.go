package models

import "fmt"

// TimeWindow is a batch's daily time window in minutes from midnight
// (e.g. 600 for 10:00). Resolved is false when the time is TBD.
type TimeWindow struct {
	Resolved bool `json:"resolved"`
	Start    int  `json:"start,omitempty"`
	End      int  `json:"end,omitempty"`
}

func (w TimeWindow) String() string {
	if !w.Resolved {
		return "TBD"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}
