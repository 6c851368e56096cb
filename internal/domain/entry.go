package domain

import (
	"strings"
	"time"
)

// WorkoutEntry is a workout as typed in by the user. It is tracked either by
// sets and reps or by duration.
type WorkoutEntry struct {
	Name            string
	Timestamp       time.Time
	DurationMinutes int
	Sets            string
	Reps            string
	Weight          string
	Description     string
	Notes           string
}

// Record fills in the description and duration the way the tracker does and
// returns the record to log. Sets and reps win over a plain duration when
// both are given. An explicit description is kept as is.
func (e WorkoutEntry) Record() (WorkoutRecord, error) {
	duration, desc := e.DurationMinutes, e.Description
	switch {
	case strings.TrimSpace(e.Sets) != "" || strings.TrimSpace(e.Reps) != "":
		d, err := SetsDescription(e.Sets, e.Reps, e.Weight)
		if err != nil {
			return WorkoutRecord{}, err
		}
		if desc == "" {
			desc = d
		}
		if duration == 0 {
			duration = EstimateSetsDuration(e.Sets)
		}
	case desc == "" && duration > 0:
		desc = DurationDescription(duration)
	}

	rec := NewWorkoutRecord(strings.TrimSpace(e.Name), e.Timestamp, duration, desc, e.Notes)
	return rec, rec.Validate()
}
