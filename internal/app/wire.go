package app

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/config"
	"github.com/briangreenhill/fitplan/internal/gemini"
	"github.com/briangreenhill/fitplan/internal/prompt"
	"github.com/briangreenhill/fitplan/internal/store"
)

// FromConfig opens the stores under the configured data directory and, when
// an API key is set, the Gemini client. A workout log that fails to load
// still yields a usable App along with the error.
func FromConfig(cfg *config.Config, fs afero.Fs, log zerolog.Logger) (*App, error) {
	opts := Options{
		Plans: store.NewPlanStore(fs, cfg.PlanPath(), log),
		Log:   log,
	}

	if cfg.HasGemini() {
		client, err := gemini.New(cfg.Gemini.APIKey,
			gemini.WithHTTPClient(&http.Client{Timeout: cfg.Gemini.Timeout}),
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithGenerationConfig(gemini.GenerationConfig{
				MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
				Temperature:     cfg.Gemini.Temperature,
			}),
			gemini.WithPrompts(prompt.NewGenerator(cfg.Data.PromptPath, log)),
			gemini.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		opts.Generator = client
	}

	workouts, err := store.OpenWorkouts(fs, cfg.WorkoutPath(), log)
	opts.Workouts = workouts
	return New(opts), err
}
