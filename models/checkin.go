package models

// CheckIn is one calendar check-in day
type CheckIn struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Duration  int     `json:"duration"`
	StartTime *string `json:"start_time"` // "HH:MM", null when unset
	EndTime   *string `json:"end_time"`
}

// CheckInMonth is the month-scoped check-in listing
type CheckInMonth struct {
	CheckIns []CheckIn `json:"checkins"`
}

// CheckInUpdate is the date-scoped set/unset request. Value=false deletes the
// check-in for that date.
type CheckInUpdate struct {
	Date      string  `json:"date"`
	Value     bool    `json:"value"`
	Duration  *int    `json:"duration,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

// CheckInResult acknowledges a set/unset
type CheckInResult struct {
	OK        bool    `json:"ok"`
	Date      string  `json:"date"`
	Value     bool    `json:"value"`
	Duration  int     `json:"duration,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}
