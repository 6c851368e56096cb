package logging

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// asynqLogger adapts zerolog to asynq's Logger interface.
type asynqLogger struct {
	log zerolog.Logger
}

// AsynqLogger returns a logger the asynq server can write through.
func AsynqLogger(log zerolog.Logger) asynq.Logger {
	return &asynqLogger{log: log.With().Str("component", "asynq").Logger()}
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
