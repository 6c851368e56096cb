// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all application configuration
type Config struct {
	Gemini GeminiConfig `envPrefix:"GEMINI_"`
	Data   DataConfig   `envPrefix:"FITPLAN_"`

	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty       bool          `env:"LOG_PRETTY" envDefault:"true"`
	Port            string        `env:"PORT" envDefault:"8080"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"12h"`
}

// GeminiConfig holds settings for the plan generation API
type GeminiConfig struct {
	APIKey          string        `env:"API_KEY"`
	Model           string        `env:"MODEL" envDefault:"gemini-1.5-flash"`
	BaseURL         string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	MaxOutputTokens int           `env:"MAX_OUTPUT_TOKENS" envDefault:"800"`
	Temperature     float64       `env:"TEMPERATURE" envDefault:"0.7"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// DataConfig says where the plan and the workout log live
type DataConfig struct {
	Dir         string `env:"DATA_DIR" envDefault:"."`
	PlanFile    string `env:"PLAN_FILE" envDefault:"workout_plan.txt"`
	WorkoutFile string `env:"WORKOUT_FILE" envDefault:"workouts.txt"`
	PromptPath  string `env:"PROMPT_PATH"`
}

// Load reads an optional .env file from the working directory, then parses
// the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom parses the given variables only. The process environment and any
// .env file are ignored.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %v", err)
	}
	if cfg.Gemini.MaxOutputTokens <= 0 {
		return nil, fmt.Errorf("GEMINI_MAX_OUTPUT_TOKENS must be positive, got %d", cfg.Gemini.MaxOutputTokens)
	}
	if cfg.Gemini.Temperature < 0 || cfg.Gemini.Temperature > 2 {
		return nil, fmt.Errorf("GEMINI_TEMPERATURE must be between 0-2, got %v", cfg.Gemini.Temperature)
	}
	return cfg, nil
}

// HasGemini returns true if an API key is configured
func (c *Config) HasGemini() bool {
	return c.Gemini.APIKey != ""
}

// Validate ensures plan generation can run. Reading the stored plan and the
// workout log does not need it.
func (c *Config) Validate() error {
	if !c.HasGemini() {
		return fmt.Errorf("GEMINI_API_KEY is not set - run 'fitplan setup' or export it")
	}
	return nil
}

// PlanPath is the full path of the plan file
func (c *Config) PlanPath() string {
	return filepath.Join(c.Data.Dir, c.Data.PlanFile)
}

// WorkoutPath is the full path of the workout log
func (c *Config) WorkoutPath() string {
	return filepath.Join(c.Data.Dir, c.Data.WorkoutFile)
}
