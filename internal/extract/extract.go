// Package extract pulls the generated plan text out of a generateContent
// response body. The body is treated as text rather than trusted JSON so
// truncated or oddly shaped payloads still yield something useful.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"
)

const (
	// EmptyResponse is returned for an empty body.
	EmptyResponse = "Error: Empty response from API"
	// FailurePrefix starts the placeholder returned when no known shape matched.
	// The raw body follows it.
	FailurePrefix = "Failed to parse response: "
)

// Shape names which part of the fallback chain produced the text.
type Shape string

const (
	ShapeEmpty         Shape = "empty"
	ShapeCandidates    Shape = "candidates"
	ShapeParts         Shape = "parts"
	ShapeTextField     Shape = "text_field"
	ShapeContentObject Shape = "content_object"
	ShapeUnrecognized  Shape = "unrecognized"
)

// Result is the extracted text and the shape that matched.
type Result struct {
	Text  string
	Shape Shape
}

// OK reports whether real plan text was found.
func (r Result) OK() bool {
	return r.Shape != ShapeEmpty && r.Shape != ShapeUnrecognized
}

var (
	candidatesMarker = regexp.MustCompile(`"candidates"\s*:\s*\[\s*\{\s*"content"\s*:\s*\{\s*"parts"\s*:\s*\[\s*\{\s*"text"\s*:\s*"`)
	candidatesClose  = regexp.MustCompile(`"\s*\}\s*\]`)
	partsMarker      = regexp.MustCompile(`"parts"\s*:\s*\[\s*\{\s*"text"\s*:\s*"`)
	partsClose       = regexp.MustCompile(`"\s*\}`)
	textMarker       = regexp.MustCompile(`"text"\s*:\s*"`)
	contentMarker    = regexp.MustCompile(`"content"\s*:`)
)

// Extractor logs which shape each response matched.
type Extractor struct {
	Log zerolog.Logger
}

// Extract returns the plan text in raw, or a diagnostic placeholder. It never fails.
func Extract(raw string) string {
	return Extractor{Log: zerolog.Nop()}.Extract(raw)
}

// Extract is the logging variant of the package level Extract.
func (e Extractor) Extract(raw string) string {
	return e.Parse(raw).Text
}

// Parse runs the fallback chain; the first shape that yields non-empty text wins.
func (e Extractor) Parse(raw string) Result {
	if raw == "" {
		e.Log.Warn().Msg("empty response body")
		return Result{Text: EmptyResponse, Shape: ShapeEmpty}
	}

	steps := []struct {
		shape Shape
		fn    func(string) (string, bool)
	}{
		{ShapeCandidates, fromCandidates},
		{ShapeParts, fromParts},
		{ShapeTextField, fromTextField},
		{ShapeContentObject, fromContentObject},
	}
	for _, s := range steps {
		if text, ok := s.fn(raw); ok {
			e.Log.Debug().Str("shape", string(s.shape)).Int("chars", len(text)).Msg("extracted plan text")
			return Result{Text: text, Shape: s.shape}
		}
	}

	e.Log.Warn().Int("bytes", len(raw)).Msg("response shape not recognized")
	return Result{Text: FailurePrefix + raw, Shape: ShapeUnrecognized}
}

// fromCandidates reads candidates[0].content.parts[0].text, structurally when
// the body parses and by marker scan when it does not.
func fromCandidates(raw string) (string, bool) {
	if text, err := jsonparser.GetString([]byte(raw), "candidates", "[0]", "content", "parts", "[0]", "text"); err == nil && text != "" {
		return text, true
	}
	return betweenMarkers(raw, candidatesMarker, candidatesClose)
}

func fromParts(raw string) (string, bool) {
	return betweenMarkers(raw, partsMarker, partsClose)
}

// fromTextField takes the first "text" string value, honoring escapes.
func fromTextField(raw string) (string, bool) {
	loc := textMarker.FindStringIndex(raw)
	if loc == nil {
		return "", false
	}
	end := closingQuote(raw, loc[1])
	if end <= loc[1] {
		return "", false
	}
	return unescape(raw[loc[1]:end]), true
}

// fromContentObject bounds the first "content" object by brace depth and
// takes the first non-empty "text" string inside it.
func fromContentObject(raw string) (string, bool) {
	loc := contentMarker.FindStringIndex(raw)
	if loc == nil {
		return "", false
	}
	end := matchingBrace(raw, loc[1])
	if end < 0 {
		return "", false
	}
	sub := raw[loc[1]:end]
	for _, m := range textMarker.FindAllStringIndex(sub, -1) {
		if end := closingQuote(sub, m[1]); end > m[1] {
			return unescape(sub[m[1]:end]), true
		}
	}
	return "", false
}

// betweenMarkers captures from the end of open up to the first unescaped
// match of closing.
func betweenMarkers(raw string, open, closing *regexp.Regexp) (string, bool) {
	loc := open.FindStringIndex(raw)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	rest := raw[start:]
	for _, m := range closing.FindAllStringIndex(rest, -1) {
		if escaped(rest, m[0]) {
			continue
		}
		if m[0] == 0 {
			return "", false
		}
		return unescape(rest[:m[0]]), true
	}
	return "", false
}

// escaped reports whether the byte at i is preceded by an odd run of backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// closingQuote returns the index of the first unescaped quote at or after
// start, or -1.
func closingQuote(s string, start int) int {
	inEscape := false
	for i := start; i < len(s); i++ {
		switch {
		case inEscape:
			inEscape = false
		case s[i] == '\\':
			inEscape = true
		case s[i] == '"':
			return i
		}
	}
	return -1
}

// matchingBrace scans from start and returns the index of the brace that
// closes the object opened after start, or -1. Braces inside strings are ignored.
func matchingBrace(s string, start int) int {
	depth := 0
	inString, inEscape := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case inEscape:
				inEscape = false
			case c == '\\':
				inEscape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth <= 0 {
				return i
			}
		}
	}
	return -1
}

// unescape decodes a JSON string body. Bodies that are not valid JSON (raw
// control characters, stray escapes) get a single pass that only knows
// \n, \" and \\, so already decoded output is never decoded twice.
func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '"':
				b.WriteByte('"')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
