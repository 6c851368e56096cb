package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/domain"
	"github.com/briangreenhill/fitplan/internal/observability"
)

// ErrNoPlan is returned when no plan has been saved yet.
var ErrNoPlan = errors.New("no workout plan saved")

const (
	planTitle     = "# WORKOUT PLAN"
	planRule      = "# ========================"
	planGenerated = "# Generated: "
	planGoals     = "# Goals: "
	planLevel     = "# Level: "
	planTime      = "# Time: "
	planFavorite  = "# Favorite: "
	planSpecial   = "# Special: "
)

// PlanStore keeps the single current plan. The file is a commented header,
// a blank line, then the plan body verbatim.
type PlanStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	name string
	log  zerolog.Logger
}

// NewPlanStore returns a store for the plan file at path. Nothing is read
// until asked.
func NewPlanStore(fs afero.Fs, path string, log zerolog.Logger) *PlanStore {
	name := filepath.Base(path)
	return &PlanStore{
		fs:   fs,
		path: path,
		name: name,
		log:  log.With().Str("store", name).Logger(),
	}
}

// Path returns the backing file.
func (s *PlanStore) Path() string { return s.path }

// Save replaces the stored plan.
func (s *PlanStore) Save(plan *domain.WorkoutPlan) error {
	if plan == nil {
		return errors.New("save plan: nil plan")
	}

	var b strings.Builder
	b.WriteString(planTitle + "\n")
	b.WriteString(planGenerated + plan.CreatedAt.Format(DateLayout) + "\n")
	b.WriteString(planGoals + headerValue(plan.Goals) + "\n")
	b.WriteString(planLevel + headerValue(plan.Level) + "\n")
	b.WriteString(planTime + headerValue(plan.Time) + "\n")
	if plan.Favorites != "" {
		b.WriteString(planFavorite + headerValue(plan.Favorites) + "\n")
	}
	if plan.SpecialConditions != "" {
		b.WriteString(planSpecial + headerValue(plan.SpecialConditions) + "\n")
	}
	b.WriteString("#\n")
	b.WriteString(planRule + "\n")
	b.WriteString("\n")
	b.WriteString(plan.Content)
	if !strings.HasSuffix(plan.Content, "\n") {
		b.WriteString("\n")
	}

	s.mu.Lock()
	err := writeFile(s.fs, s.path, []byte(b.String()))
	s.mu.Unlock()

	observability.RecordStoreSave(s.name, err)
	if err != nil {
		s.log.Error().Err(err).Msg("save plan")
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	s.log.Debug().Int("bytes", len(plan.Content)).Msg("saved plan")
	return nil
}

// LoadContent returns the plan body with every line newline terminated.
// found is false when there is no plan file. A file with a header and no
// body yields "" and true.
func (s *PlanStore) LoadContent() (content string, found bool, err error) {
	plan, err := s.Load()
	if errors.Is(err, ErrNoPlan) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return plan.Content, true, nil
}

// Exists reports whether a non-empty plan file is present.
func (s *PlanStore) Exists() bool {
	info, err := s.fs.Stat(s.path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Load reads the plan and the preferences recorded in its header. Header
// values that are missing or unreadable are left blank.
func (s *PlanStore) Load() (*domain.WorkoutPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := &domain.WorkoutPlan{}
	var body strings.Builder
	inBody := false
	err := readLines(s.fs, s.path, func(_ int, line string) {
		if inBody {
			body.WriteString(line)
			body.WriteByte('\n')
			return
		}
		if strings.TrimSpace(line) == "" {
			inBody = true
			return
		}
		s.parseHeader(plan, line)
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoPlan
	}
	if err != nil {
		s.log.Error().Err(err).Msg("load plan")
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}

	plan.Content = body.String()
	return plan, nil
}

func (s *PlanStore) parseHeader(plan *domain.WorkoutPlan, line string) {
	switch {
	case strings.HasPrefix(line, planGenerated):
		v := strings.TrimPrefix(line, planGenerated)
		ts, err := time.ParseInLocation(DateLayout, strings.TrimSpace(v), time.Local)
		if err != nil {
			s.log.Warn().Err(err).Str("value", v).Msg("unreadable plan timestamp")
			return
		}
		plan.CreatedAt = ts
	case strings.HasPrefix(line, planGoals):
		plan.Goals = strings.TrimPrefix(line, planGoals)
	case strings.HasPrefix(line, planLevel):
		plan.Level = strings.TrimPrefix(line, planLevel)
	case strings.HasPrefix(line, planTime):
		plan.Time = strings.TrimPrefix(line, planTime)
	case strings.HasPrefix(line, planFavorite):
		plan.Favorites = strings.TrimPrefix(line, planFavorite)
	case strings.HasPrefix(line, planSpecial):
		plan.SpecialConditions = strings.TrimPrefix(line, planSpecial)
	}
}

// headerValue keeps a value on its header line.
func headerValue(v string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(v)
}
