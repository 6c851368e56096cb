package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/fitplan/internal/domain"
	"github.com/briangreenhill/fitplan/internal/extract"
	"github.com/briangreenhill/fitplan/internal/prompt"
)

var prefs = domain.Preferences{Goals: "Build muscle", Level: domain.LevelBeginner, Time: "3 hours"}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeneratePlan(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "candidates": [
    {
      "content": {
        "parts": [
          {
            "text": "**Monday**\n- Squats: 3 sets, 10 reps - \"legs\""
          }
        ],
        "role": "model"
      },
      "finishReason": "STOP"
    }
  ]
}
`)
	}))
	defer srv.Close()

	c, err := New("secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	plan, err := c.GeneratePlan(context.Background(), prefs)
	require.NoError(t, err)
	assert.Equal(t, "**Monday**\n- Squats: 3 sets, 10 reps - \"legs\"", plan)

	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, prompt.Build(prefs), gotReq.Contents[0].Parts[0].Text)
	assert.Equal(t, 800, gotReq.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 0.7, gotReq.GenerationConfig.Temperature)
}

func TestGenerateCustomModelAndConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxy/v1/models/gemini-2.0-flash:generateContent", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 200, req.GenerationConfig.MaxOutputTokens)
		_, _ = io.WriteString(w, `{"parts": [{"text": "short plan"}]}`)
	}))
	defer srv.Close()

	c, err := New("k",
		WithBaseURL(srv.URL+"/proxy"),
		WithModel("gemini-2.0-flash"),
		WithGenerationConfig(GenerationConfig{MaxOutputTokens: 200, Temperature: 0.2}),
	)
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, extract.ShapeParts, res.Shape)
	assert.Equal(t, "short plan", res.Text)
}

func TestGenerateUnrecognizedBodyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"promptFeedback": {"blockReason": "SAFETY"}}`)
	}))
	defer srv.Close()

	c, err := New("k", WithBaseURL(srv.URL))
	require.NoError(t, err)

	plan, err := c.GeneratePlan(context.Background(), prefs)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plan, extract.FailurePrefix))
	assert.Contains(t, plan, "blockReason")
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "{\n  \"error\": {\n    \"code\": 400,\n    \"message\": \"API key not valid\"\n  }\n}\n")
	}))
	defer srv.Close()

	c, err := New("bad", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.GeneratePlan(context.Background(), prefs)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, `{"error": {"code": 400,"message": "API key not valid"}}`, apiErr.Body)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New("k", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.NoError(t, err)

	_, err = c.GeneratePlan(context.Background(), prefs)
	assert.Error(t, err)
}

func TestEndpoint(t *testing.T) {
	c, err := New("a b", WithBaseURL(""))
	require.NoError(t, err)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1/models/gemini-1.5-flash:generateContent?key=a+b", c.endpoint())
}
