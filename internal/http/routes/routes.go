package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/fitplan/internal/app"
	"github.com/briangreenhill/fitplan/internal/domain"
	"github.com/briangreenhill/fitplan/internal/gemini"
	"github.com/briangreenhill/fitplan/internal/http/middleware"
	"github.com/briangreenhill/fitplan/internal/jobs"
	"github.com/briangreenhill/fitplan/internal/store"
)

const (
	sessPreferences = "preferences"
	sessLastJob     = "last_job_id"
)

type Server struct {
	Router *chi.Mux
	Sess   *scs.SessionManager
	App    *app.App
	Queue  jobs.Enqueuer // nil disables POST /plan/jobs
	Log    zerolog.Logger
}

type ServerOptions struct {
	Sess  *scs.SessionManager
	App   *app.App
	Queue jobs.Enqueuer
	Log   zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Sess: opts.Sess, App: opts.App, Queue: opts.Queue, Log: opts.Log}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/preferences", s.handleGetPreferences)
	r.Route("/plan", func(pr chi.Router) {
		pr.Get("/", s.handleGetPlan)
		pr.With(middleware.RequireGeneration(s.App.CanGenerate)).Post("/", s.handleGeneratePlan)
		pr.Post("/jobs", s.handleEnqueuePlan)
		pr.Post("/workout", s.handlePlanAsWorkout)
	})
	r.Route("/workouts", func(wr chi.Router) {
		wr.Get("/", s.handleListWorkouts)
		wr.Post("/", s.handleAddWorkout)
		wr.Delete("/{index}", s.handleDeleteWorkout)
	})

	return s
}

// Handler wraps the router with session loading.
func (s *Server) Handler() http.Handler {
	return s.Sess.LoadAndSave(s.Router)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// decode reads a JSON body into v, or form values when the request is not JSON.
func decode(r *http.Request, v any, fromForm func(get func(string) string) error) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return json.NewDecoder(r.Body).Decode(v)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	return fromForm(r.Form.Get)
}

func decodePreferences(r *http.Request) (domain.Preferences, error) {
	var p domain.Preferences
	err := decode(r, &p, func(get func(string) string) error {
		p = domain.Preferences{
			Goals:             get("goals"),
			Level:             get("level"),
			Time:              get("time"),
			Favorites:         get("favorites"),
			SpecialConditions: get("special_conditions"),
		}
		return nil
	})
	return p, err
}

func (s *Server) rememberPreferences(r *http.Request, p domain.Preferences) {
	b, err := json.Marshal(p.Normalize())
	if err != nil {
		return
	}
	s.Sess.Put(r.Context(), sessPreferences, string(b))
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	raw := s.Sess.GetString(r.Context(), sessPreferences)
	if raw == "" {
		writeError(w, r, http.StatusNotFound, "no preferences submitted yet")
		return
	}
	var p domain.Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("dropping unreadable session preferences")
		s.Sess.Remove(r.Context(), sessPreferences)
		writeError(w, r, http.StatusNotFound, "no preferences submitted yet")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"preferences": p,
		"last_job_id": s.Sess.GetString(r.Context(), sessLastJob),
	})
}

type planResponse struct {
	Plan      *domain.WorkoutPlan `json:"plan"`
	SaveError string              `json:"save_error,omitempty"`
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	prefs, err := decodePreferences(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	s.rememberPreferences(r, prefs)

	plan, err := s.App.GeneratePlan(r.Context(), prefs)
	var apiErr *gemini.APIError
	switch {
	case plan != nil && err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("plan generated but not saved")
		writeJSON(w, r, http.StatusOK, planResponse{Plan: plan, SaveError: err.Error()})
	case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidLevel):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNoGenerator):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr):
		writeError(w, r, http.StatusBadGateway, err.Error())
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("generate plan")
		writeError(w, r, http.StatusBadGateway, "plan generation failed")
	default:
		writeJSON(w, r, http.StatusOK, planResponse{Plan: plan})
	}
}

func (s *Server) handleEnqueuePlan(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		writeError(w, r, http.StatusServiceUnavailable, "background generation is not configured")
		return
	}
	prefs, err := decodePreferences(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	s.rememberPreferences(r, prefs)

	id, err := jobs.EnqueueGeneratePlan(r.Context(), s.Queue, prefs)
	if errors.Is(err, domain.ErrMissingField) || errors.Is(err, domain.ErrInvalidLevel) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to enqueue plan job")
		writeError(w, r, http.StatusInternalServerError, "failed to queue plan job")
		return
	}

	s.Sess.Put(r.Context(), sessLastJob, id)
	hlog.FromRequest(r).Info().Str("job_id", id).Msg("plan job queued")
	writeJSON(w, r, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.App.ReloadPlan()
	if errors.Is(err, app.ErrNoPlan) {
		writeError(w, r, http.StatusNotFound, "no workout plan generated yet")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load plan")
		writeError(w, r, http.StatusInternalServerError, "could not load plan")
		return
	}
	writeJSON(w, r, http.StatusOK, planResponse{Plan: plan})
}

func (s *Server) handlePlanAsWorkout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.App.ReloadPlan(); err != nil && !errors.Is(err, app.ErrNoPlan) {
		hlog.FromRequest(r).Error().Err(err).Msg("load plan")
	}
	rec, err := s.App.SavePlanAsWorkout()
	if errors.Is(err, app.ErrNoPlan) {
		writeError(w, r, http.StatusNotFound, "no workout plan generated yet")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save plan as workout")
		writeError(w, r, http.StatusInternalServerError, "could not save workout")
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

type workoutsResponse struct {
	Workouts []domain.WorkoutRecord `json:"workouts"`
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "recent must be a number")
			return
		}
		writeJSON(w, r, http.StatusOK, workoutsResponse{Workouts: s.App.RecentWorkouts(n)})
		return
	}

	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := store.ParseBound(q.Get("from"), false)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		to, err := store.ParseBound(q.Get("to"), true)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		writeJSON(w, r, http.StatusOK, workoutsResponse{Workouts: s.App.WorkoutsByDateRange(from, to)})
		return
	}

	writeJSON(w, r, http.StatusOK, workoutsResponse{Workouts: s.App.AllWorkouts()})
}

type addWorkoutRequest struct {
	Name            string `json:"name"`
	Timestamp       string `json:"timestamp,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Sets            string `json:"sets,omitempty"`
	Reps            string `json:"reps,omitempty"`
	Weight          string `json:"weight,omitempty"`
	Description     string `json:"description,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (req addWorkoutRequest) entry(now time.Time) (domain.WorkoutEntry, error) {
	ts := now
	if req.Timestamp != "" {
		t, err := time.ParseInLocation(store.DateLayout, req.Timestamp, time.Local)
		if err != nil {
			return domain.WorkoutEntry{}, err
		}
		ts = t
	}
	return domain.WorkoutEntry{
		Name:            req.Name,
		Timestamp:       ts,
		DurationMinutes: req.DurationMinutes,
		Sets:            req.Sets,
		Reps:            req.Reps,
		Weight:          req.Weight,
		Description:     req.Description,
		Notes:           req.Notes,
	}, nil
}

func (s *Server) handleAddWorkout(w http.ResponseWriter, r *http.Request) {
	var req addWorkoutRequest
	err := decode(r, &req, func(get func(string) string) error {
		req = addWorkoutRequest{
			Name:        get("name"),
			Timestamp:   get("timestamp"),
			Sets:        get("sets"),
			Reps:        get("reps"),
			Weight:      get("weight"),
			Description: get("description"),
			Notes:       get("notes"),
		}
		if raw := strings.TrimSpace(get("duration_minutes")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("duration_minutes %q is not a number", raw)
			}
			req.DurationMinutes = n
		}
		return nil
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, err := req.entry(time.Now())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := entry.Record()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err = s.App.AddWorkout(rec)
	if errors.Is(err, store.ErrNotLoaded) {
		writeError(w, r, http.StatusServiceUnavailable, "workout log could not be read, try again later")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save workout")
		writeError(w, r, http.StatusInternalServerError, "workout recorded but not saved")
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid workout index")
		return
	}

	rec, err := s.App.RemoveWorkoutAt(index)
	if errors.Is(err, app.ErrWorkoutNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, store.ErrNotLoaded) {
		writeError(w, r, http.StatusServiceUnavailable, "workout log could not be read, try again later")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("remove workout")
		writeError(w, r, http.StatusInternalServerError, "workout removed but not saved")
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}
