package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/fitplan/internal/app"
)

// Handler runs queued plan generations against the application context.
type Handler struct {
	App *app.App
	Log zerolog.Logger
}

// Register wires the handler into mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskGeneratePlan, h.ProcessTask)
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p GeneratePlanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.Log.Error().Err(err).Msg("[asynq] bad payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.Log.With().Str("job_id", p.JobID).Logger()
	log.Info().Str("goals", p.Preferences.Goals).Msg("[generate] start")
	start := time.Now()

	plan, err := h.App.GeneratePlan(ctx, p.Preferences)
	duration := time.Since(start)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Bool("generated", plan != nil).Msg("[generate] failed")
		return err
	}
	log.Info().Dur("duration", duration).Int("bytes", len(plan.Content)).Msg("[generate] done")
	return nil
}
