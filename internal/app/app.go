// Package app is the application context: the plan generator and the two
// stores, built once at startup and handed to every caller.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/fitplan/internal/domain"
	"github.com/briangreenhill/fitplan/internal/observability"
	"github.com/briangreenhill/fitplan/internal/store"
)

var (
	// ErrNoPlan is returned when there is no current plan.
	ErrNoPlan = store.ErrNoPlan
	// ErrNoGenerator is returned when plan generation is not configured.
	ErrNoGenerator = errors.New("plan generation is not configured")
	// ErrWorkoutNotFound is returned for an index outside the workout log.
	ErrWorkoutNotFound = errors.New("workout not found")
)

// PlanGenerator turns preferences into plan text.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, prefs domain.Preferences) (string, error)
}

type Options struct {
	Plans     *store.PlanStore
	Workouts  *store.WorkoutStore
	Generator PlanGenerator // nil disables generation
	Log       zerolog.Logger
	Now       func() time.Time
}

type App struct {
	plans     *store.PlanStore
	workouts  *store.WorkoutStore
	generator PlanGenerator
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *domain.WorkoutPlan
}

func New(opts Options) *App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		plans:     opts.Plans,
		workouts:  opts.Workouts,
		generator: opts.Generator,
		log:       opts.Log,
		now:       now,
	}
}

// CanGenerate reports whether a generator is configured.
func (a *App) CanGenerate() bool { return a.generator != nil }

// GeneratePlan asks for a new plan, makes it current and saves it. When only
// the save fails the plan is returned together with the error.
func (a *App) GeneratePlan(ctx context.Context, prefs domain.Preferences) (*domain.WorkoutPlan, error) {
	prefs = prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		observability.RecordGeneration("invalid")
		return nil, err
	}
	if a.generator == nil {
		return nil, ErrNoGenerator
	}

	start := time.Now()
	content, err := a.generator.GeneratePlan(ctx, prefs)
	if err != nil {
		observability.RecordGeneration("api_error")
		a.log.Error().Err(err).Dur("took", time.Since(start)).Msg("plan generation failed")
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	observability.RecordGeneration("ok")

	plan := domain.NewWorkoutPlan(content, prefs)
	plan.CreatedAt = a.now().Truncate(time.Second)

	a.mu.Lock()
	a.current = plan
	a.mu.Unlock()

	a.log.Info().
		Str("goals", prefs.Goals).
		Str("level", prefs.Level).
		Dur("took", time.Since(start)).
		Msg("plan generated")

	if err := a.plans.Save(plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// CurrentPlan returns the plan generated in this process, or the saved one.
func (a *App) CurrentPlan() (*domain.WorkoutPlan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		return a.current, nil
	}
	plan, err := a.plans.Load()
	if err != nil {
		return nil, err
	}
	a.current = plan
	return plan, nil
}

// ReloadPlan drops the cached plan and reads the saved one. Another process
// may have replaced it.
func (a *App) ReloadPlan() (*domain.WorkoutPlan, error) {
	plan, err := a.plans.Load()
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.current = plan
	a.mu.Unlock()
	return plan, nil
}

// CurrentPlanContent returns the saved plan body. found is false when no
// plan has been saved.
func (a *App) CurrentPlanContent() (content string, found bool, err error) {
	return a.plans.LoadContent()
}

// AddWorkout validates rec and appends it to the log.
func (a *App) AddWorkout(rec domain.WorkoutRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return a.workouts.Add(rec)
}

// RemoveWorkout removes the first logged workout equal to rec.
func (a *App) RemoveWorkout(rec domain.WorkoutRecord) error {
	return a.workouts.Remove(rec)
}

// RemoveWorkoutAt removes the workout shown at index of AllWorkouts. The
// removal itself is by value.
func (a *App) RemoveWorkoutAt(index int) (domain.WorkoutRecord, error) {
	all := a.workouts.All()
	if index < 0 || index >= len(all) {
		return domain.WorkoutRecord{}, fmt.Errorf("index %d: %w", index, ErrWorkoutNotFound)
	}
	rec := all[index]
	return rec, a.workouts.Remove(rec)
}

func (a *App) AllWorkouts() []domain.WorkoutRecord {
	return a.workouts.All()
}

func (a *App) WorkoutsByDateRange(start, end time.Time) []domain.WorkoutRecord {
	return a.workouts.ByDateRange(start, end)
}

func (a *App) RecentWorkouts(n int) []domain.WorkoutRecord {
	return a.workouts.Recent(n)
}

// SavePlanAsWorkout logs the current plan as a workout dated now.
func (a *App) SavePlanAsWorkout() (domain.WorkoutRecord, error) {
	plan, err := a.CurrentPlan()
	if err != nil {
		return domain.WorkoutRecord{}, err
	}
	rec := domain.PlanAsWorkout(plan, a.now())
	if err := a.workouts.Add(rec); err != nil {
		return rec, err
	}
	return rec, nil
}
