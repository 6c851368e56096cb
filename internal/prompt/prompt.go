// Package prompt builds the plan request sent to the generation API
package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/fitplan/internal/domain"
)

const (
	noFavorites = "None specified"
	noSpecial   = "None"
)

var defaultTmpl = template.Must(template.New("default").Parse(defaultTemplate))

// Build returns the built-in prompt for prefs.
func Build(prefs domain.Preferences) string {
	var b strings.Builder
	// The default template only references Preferences fields.
	_ = defaultTmpl.Execute(&b, templateData(prefs))
	return b.String()
}

// templateData fills the optional fields with their placeholders.
func templateData(prefs domain.Preferences) domain.Preferences {
	if strings.TrimSpace(prefs.Favorites) == "" {
		prefs.Favorites = noFavorites
	}
	if strings.TrimSpace(prefs.SpecialConditions) == "" {
		prefs.SpecialConditions = noSpecial
	}
	return prefs
}

// Generator renders prompts from a custom template file when one is set
type Generator struct {
	customPath string
	log        zerolog.Logger
}

// NewGenerator creates a new prompt generator. An empty path means the
// built-in prompt.
func NewGenerator(customPath string, log zerolog.Logger) *Generator {
	return &Generator{customPath: customPath, log: log}
}

// Generate returns the prompt for prefs (custom or default)
func (g *Generator) Generate(prefs domain.Preferences) (string, error) {
	if g == nil || g.customPath == "" {
		return Build(prefs), nil
	}

	data, err := os.ReadFile(g.customPath)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	tmpl, err := template.New("custom").Option("missingkey=error").Parse(string(data))
	if err != nil {
		return "", fmt.Errorf("parse prompt template %s: %w", g.customPath, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, templateData(prefs)); err != nil {
		return "", fmt.Errorf("render prompt template %s: %w", g.customPath, err)
	}
	return b.String(), nil
}

// GenerateWithFallback returns the prompt, using the built-in one when the
// custom template cannot be rendered
func (g *Generator) GenerateWithFallback(prefs domain.Preferences) string {
	p, err := g.Generate(prefs)
	if err != nil {
		g.log.Warn().Err(err).Msg("error loading prompt template, using default prompt instead")
		return Build(prefs)
	}
	return p
}
