package gemini

import "fmt"

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// GenerationConfig bounds the length and randomness of a generated plan.
type GenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

// APIError is a non-200 reply. Body is the raw response text.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error: status %d: %s", e.StatusCode, e.Body)
}
