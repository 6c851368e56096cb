package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("Expected model 'gemini-1.5-flash', got '%s'", cfg.Gemini.Model)
	}
	if cfg.Gemini.MaxOutputTokens != 800 {
		t.Errorf("Expected 800 max output tokens, got %d", cfg.Gemini.MaxOutputTokens)
	}
	if cfg.Gemini.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", cfg.Gemini.Temperature)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %v", cfg.Gemini.Timeout)
	}
	if cfg.PlanPath() != "workout_plan.txt" {
		t.Errorf("Expected plan path 'workout_plan.txt', got '%s'", cfg.PlanPath())
	}
	if cfg.WorkoutPath() != "workouts.txt" {
		t.Errorf("Expected workout path 'workouts.txt', got '%s'", cfg.WorkoutPath())
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got '%s'", cfg.Port)
	}
	if cfg.SessionLifetime != 12*time.Hour {
		t.Errorf("Expected 12h session lifetime, got %v", cfg.SessionLifetime)
	}
	if cfg.HasGemini() {
		t.Error("Should not have Gemini configured")
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"GEMINI_API_KEY":       "test_key",
		"GEMINI_MODEL":         "gemini-2.0-flash",
		"GEMINI_TEMPERATURE":   "1.2",
		"FITPLAN_DATA_DIR":     "/var/lib/fitplan",
		"FITPLAN_WORKOUT_FILE": "log.txt",
		"LOG_LEVEL":            "debug",
		"LOG_PRETTY":           "false",
	})
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if !cfg.HasGemini() {
		t.Error("Should have Gemini configured")
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Expected model override, got '%s'", cfg.Gemini.Model)
	}
	if cfg.Gemini.Temperature != 1.2 {
		t.Errorf("Expected temperature 1.2, got %v", cfg.Gemini.Temperature)
	}
	if want := filepath.Join("/var/lib/fitplan", "log.txt"); cfg.WorkoutPath() != want {
		t.Errorf("Expected workout path '%s', got '%s'", want, cfg.WorkoutPath())
	}
	if cfg.LogPretty {
		t.Error("Expected LOG_PRETTY=false")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad temperature":  {"GEMINI_TEMPERATURE": "hot"},
		"temperature high": {"GEMINI_TEMPERATURE": "3"},
		"zero tokens":      {"GEMINI_MAX_OUTPUT_TOKENS": "0"},
		"bad timeout":      {"GEMINI_TIMEOUT": "soon"},
		"bad log level":    {"LOG_LEVEL": "loud"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(vars); err == nil {
				t.Errorf("Expected error for %v", vars)
			}
		})
	}
}

func TestLoadReadsProcessEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from_env")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Gemini.APIKey != "from_env" {
		t.Errorf("Expected API key 'from_env', got '%s'", cfg.Gemini.APIKey)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got '%s'", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when no API key configured")
	}

	cfg.Gemini.APIKey = "test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Should not error with API key configured: %v", err)
	}
}
