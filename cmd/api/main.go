// cmd/api/main.go
package main

import (
	"errors"
	"net/http"
	"os"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/app"
	"github.com/briangreenhill/fitplan/internal/config"
	"github.com/briangreenhill/fitplan/internal/http/routes"
	"github.com/briangreenhill/fitplan/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", true)
		fallback.Fatal().Err(err).Msg("config error")
	}

	// Logger
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	logger.Info().Str("port", cfg.Port).Msg("starting api")

	// Application context
	a, err := app.FromConfig(cfg, afero.NewOsFs(), logger)
	if a == nil {
		logger.Fatal().Err(err).Msg("app error")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("workout log could not be read, it stays read-only until it loads")
	}
	if !a.CanGenerate() {
		logger.Warn().Msg("GEMINI_API_KEY not set, plan generation is disabled")
	}

	// Queue for background generation
	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("close asynq client")
		}
	}()

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.SessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:  sess,
		App:   a,
		Queue: queue,
		Log:   logger,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: s.Handler()}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
