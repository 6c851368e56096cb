package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyName is returned when a workout has no exercise name.
var ErrEmptyName = errors.New("workout name is required")

// WorkoutRecord is one logged exercise session. Records carry no id and are
// compared by value on every field.
type WorkoutRecord struct {
	Name            string    `json:"name"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes int       `json:"duration_minutes"`
	Description     string    `json:"description"`
	Notes           string    `json:"notes"`
}

// NewWorkoutRecord builds a record with its timestamp cut to whole seconds,
// which is the precision of the log file.
func NewWorkoutRecord(name string, ts time.Time, duration int, description, notes string) WorkoutRecord {
	return WorkoutRecord{
		Name:            name,
		Timestamp:       ts.Truncate(time.Second),
		DurationMinutes: duration,
		Description:     description,
		Notes:           notes,
	}
}

// Time returns when the workout happened.
func (w WorkoutRecord) Time() time.Time { return w.Timestamp }

// Equal compares every field. Timestamps are compared as instants.
func (w WorkoutRecord) Equal(o WorkoutRecord) bool {
	return w.Name == o.Name &&
		w.Timestamp.Equal(o.Timestamp) &&
		w.DurationMinutes == o.DurationMinutes &&
		w.Description == o.Description &&
		w.Notes == o.Notes
}

// Validate rejects records without a name. The store itself never validates.
func (w WorkoutRecord) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// DurationDescription is the description used for time-tracked sessions.
func DurationDescription(minutes int) string {
	return fmt.Sprintf("%d minutes", minutes)
}

// SetsDescription is the description used for sets/reps sessions. Weight is
// optional and given in pounds.
func SetsDescription(sets, reps, weight string) (string, error) {
	sets, reps, weight = strings.TrimSpace(sets), strings.TrimSpace(reps), strings.TrimSpace(weight)
	if sets == "" || reps == "" {
		return "", fmt.Errorf("sets and reps: %w", ErrMissingField)
	}
	desc := sets + " sets × " + reps + " reps"
	if weight != "" {
		desc += " @ " + weight + " lbs"
	}
	return desc, nil
}

// EstimateSetsDuration guesses two minutes per set; 0 when sets is not a number.
func EstimateSetsDuration(sets string) int {
	n, err := strconv.Atoi(strings.TrimSpace(sets))
	if err != nil {
		return 0
	}
	return n * 2
}

const maxPlanWorkoutName = 50

// PlanAsWorkout turns a generated plan into a log entry so it shows up in
// the tracker.
func PlanAsWorkout(plan *WorkoutPlan, now time.Time) WorkoutRecord {
	name := "Workout Plan - " + plan.Goals
	if r := []rune(name); len(r) > maxPlanWorkoutName {
		name = string(r[:maxPlanWorkoutName-3]) + "..."
	}
	return NewWorkoutRecord(name, now, 0, plan.Content,
		"Generated workout plan based on goals: "+plan.Goals)
}
