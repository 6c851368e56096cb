// Package gemini asks the hosted generative text API for workout plans.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/fitplan/internal/domain"
	"github.com/briangreenhill/fitplan/internal/extract"
	"github.com/briangreenhill/fitplan/internal/observability"
	"github.com/briangreenhill/fitplan/internal/prompt"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"

	maxResponseLine = 4 << 20
)

// DefaultGenerationConfig matches what the plan prompt was tuned for.
var DefaultGenerationConfig = GenerationConfig{MaxOutputTokens: 800, Temperature: 0.7}

// ErrMissingAPIKey is returned by New when no key is given.
var ErrMissingAPIKey = errors.New("gemini API key required")

type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
	model   string
	gen     GenerationConfig

	prompts   *prompt.Generator
	extractor extract.Extractor
	log       zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && raw != "" {
			c.baseURL = u
		}
	}
}
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}
func WithGenerationConfig(g GenerationConfig) Option {
	return func(c *Client) { c.gen = g }
}
func WithPrompts(g *prompt.Generator) Option {
	return func(c *Client) { c.prompts = g }
}
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
		c.extractor = extract.Extractor{Log: l}
	}
}
func WithExtractor(e extract.Extractor) Option {
	return func(c *Client) { c.extractor = e }
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:      http.DefaultClient,
		baseURL:   u,
		apiKey:    apiKey,
		model:     DefaultModel,
		gen:       DefaultGenerationConfig,
		extractor: extract.Extractor{Log: zerolog.Nop()},
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// GeneratePlan renders the prompt for prefs and returns the generated plan
// text. A reply in an unknown shape is not an error: the text is then a
// diagnostic placeholder.
func (c *Client) GeneratePlan(ctx context.Context, prefs domain.Preferences) (string, error) {
	res, err := c.Generate(ctx, c.prompts.GenerateWithFallback(prefs))
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Generate sends text as a single-part prompt.
func (c *Client) Generate(ctx context.Context, text string) (extract.Result, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: c.gen,
	})
	if err != nil {
		return extract.Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return extract.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return extract.Result{}, fmt.Errorf("POST %s:generateContent: %w", c.model, err)
	}
	defer resp.Body.Close()

	raw, err := readTrimmed(resp.Body)
	if err != nil {
		return extract.Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error().Int("status", resp.StatusCode).Str("body", raw).Msg("gemini API error response")
		return extract.Result{}, &APIError{StatusCode: resp.StatusCode, Body: raw}
	}
	c.log.Debug().Int("bytes", len(raw)).Msg("gemini response received")

	res := c.extractor.Parse(raw)
	observability.RecordExtraction(string(res.Shape))
	return res, nil
}

func (c *Client) endpoint() string {
	u := *c.baseURL
	u.Path = path.Join("/", u.Path, "v1/models", c.model+":generateContent")
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// readTrimmed joins the body's lines with surrounding whitespace removed.
func readTrimmed(r io.Reader) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxResponseLine)
	for sc.Scan() {
		b.WriteString(strings.TrimSpace(sc.Text()))
	}
	return b.String(), sc.Err()
}
