// Package domain holds the workout plan and workout log value types.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Experience levels offered by the preference form.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

var (
	// ErrMissingField is returned when a required preference is blank.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidLevel is returned for a level other than the three offered.
	ErrInvalidLevel = errors.New("unknown experience level")
)

// Preferences is what the user fills in before asking for a plan.
type Preferences struct {
	Goals             string `json:"goals"`
	Level             string `json:"level"`
	Time              string `json:"time"`
	Favorites         string `json:"favorites,omitempty"`
	SpecialConditions string `json:"special_conditions,omitempty"`
}

// Normalize trims every field and spells the level the canonical way. A
// blank level means beginner; an unknown one is kept for Validate to reject.
func (p Preferences) Normalize() Preferences {
	level, _ := canonicalLevel(p.Level)
	return Preferences{
		Goals:             strings.TrimSpace(p.Goals),
		Level:             level,
		Time:              strings.TrimSpace(p.Time),
		Favorites:         strings.TrimSpace(p.Favorites),
		SpecialConditions: strings.TrimSpace(p.SpecialConditions),
	}
}

// Validate reports whether goals and time commitment were filled in and the
// level is one of the known values.
func (p Preferences) Validate() error {
	if strings.TrimSpace(p.Goals) == "" {
		return fmt.Errorf("goals: %w", ErrMissingField)
	}
	if strings.TrimSpace(p.Time) == "" {
		return fmt.Errorf("time commitment: %w", ErrMissingField)
	}
	if _, ok := canonicalLevel(p.Level); !ok {
		return fmt.Errorf("level %q: %w", strings.TrimSpace(p.Level), ErrInvalidLevel)
	}
	return nil
}

func canonicalLevel(level string) (string, bool) {
	level = strings.TrimSpace(level)
	switch strings.ToLower(level) {
	case "", "beginner":
		return LevelBeginner, true
	case "intermediate":
		return LevelIntermediate, true
	case "advanced":
		return LevelAdvanced, true
	}
	return level, false
}

// WorkoutPlan is a generated weekly plan along with the preferences that
// produced it. Only one plan is current at a time.
type WorkoutPlan struct {
	Content           string    `json:"content"`
	Goals             string    `json:"goals"`
	Level             string    `json:"level"`
	Time              string    `json:"time"`
	Favorites         string    `json:"favorites,omitempty"`
	SpecialConditions string    `json:"special_conditions,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewWorkoutPlan stamps a plan with the current time at second precision.
func NewWorkoutPlan(content string, prefs Preferences) *WorkoutPlan {
	return &WorkoutPlan{
		Content:           content,
		Goals:             prefs.Goals,
		Level:             prefs.Level,
		Time:              prefs.Time,
		Favorites:         prefs.Favorites,
		SpecialConditions: prefs.SpecialConditions,
		CreatedAt:         time.Now().Truncate(time.Second),
	}
}

// Preferences returns the form values the plan was generated from.
func (p *WorkoutPlan) Preferences() Preferences {
	return Preferences{
		Goals:             p.Goals,
		Level:             p.Level,
		Time:              p.Time,
		Favorites:         p.Favorites,
		SpecialConditions: p.SpecialConditions,
	}
}
