package main

import (
	"github.com/hibiken/asynq"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/app"
	"github.com/briangreenhill/fitplan/internal/config"
	"github.com/briangreenhill/fitplan/internal/jobs"
	"github.com/briangreenhill/fitplan/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", true)
		fallback.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("worker cannot generate plans")
	}

	a, err := app.FromConfig(cfg, afero.NewOsFs(), logger)
	if a == nil {
		logger.Fatal().Err(err).Msg("app error")
	}
	if err != nil {
		logger.Warn().Err(err).Msg("workout log could not be read, it stays read-only until it loads")
	}

	// One plan file, so generations run one at a time.
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 1,
		Logger:      logging.AsynqLogger(logger),
		LogLevel:    asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	h := &jobs.Handler{App: a, Log: logger}
	h.Register(mux)

	logger.Info().Str("redis", cfg.RedisAddr).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}
