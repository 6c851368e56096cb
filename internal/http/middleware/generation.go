package middleware

import (
	"encoding/json"
	"net/http"
)

// RequireGeneration rejects requests with 503 while enabled reports false,
// e.g. when no Gemini API key is configured.
func RequireGeneration(enabled func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "plan generation is not configured: set GEMINI_API_KEY or run 'fitplan setup'",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
