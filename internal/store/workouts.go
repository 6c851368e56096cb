package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/domain"
)

const (
	// WorkoutHeader is the first line of the workout log.
	WorkoutHeader = "# Workout Data - Format: Date|Name|Duration|Description|Notes"
	// DateLayout is the timestamp format of the workout log.
	DateLayout = "2006-01-02 15:04:05"

	workoutFields = 5
)

// WorkoutCodec reads and writes Date|Name|Duration|Description|Notes lines.
type WorkoutCodec struct {
	// Location timestamps are written and parsed in. Nil means time.Local.
	Location *time.Location
}

func (c WorkoutCodec) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (WorkoutCodec) Header() string { return WorkoutHeader }

func (c WorkoutCodec) Encode(w domain.WorkoutRecord) string {
	return JoinFields(
		w.Timestamp.In(c.loc()).Format(DateLayout),
		w.Name,
		strconv.Itoa(w.DurationMinutes),
		w.Description,
		w.Notes,
	)
}

func (c WorkoutCodec) Decode(line string) (domain.WorkoutRecord, error) {
	parts := SplitFields(line, workoutFields)
	if len(parts) < workoutFields {
		return domain.WorkoutRecord{}, fmt.Errorf("expected %d fields, got %d", workoutFields, len(parts))
	}

	ts, err := time.ParseInLocation(DateLayout, strings.TrimSpace(parts[0]), c.loc())
	if err != nil {
		return domain.WorkoutRecord{}, fmt.Errorf("parse date: %w", err)
	}
	duration, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return domain.WorkoutRecord{}, fmt.Errorf("parse duration: %w", err)
	}

	return domain.WorkoutRecord{
		Timestamp:       ts,
		Name:            parts[1],
		DurationMinutes: duration,
		Description:     parts[3],
		Notes:           parts[4],
	}, nil
}

// WorkoutStore is the workout log.
type WorkoutStore = RecordStore[domain.WorkoutRecord]

// OpenWorkouts opens the workout log at path.
func OpenWorkouts(fs afero.Fs, path string, log zerolog.Logger) (*WorkoutStore, error) {
	return Open[domain.WorkoutRecord](fs, path, WorkoutCodec{}, log)
}
