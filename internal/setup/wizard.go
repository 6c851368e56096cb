// Package setup runs the first-run wizard that stores settings in a .env file
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Wizard asks for the API key and a few optional settings, then merges them
// into the .env file at EnvPath. Keys it does not ask about are kept.
type Wizard struct {
	In      *bufio.Reader
	Out     io.Writer
	EnvPath string
}

type question struct {
	key      string
	label    string
	fallback string
	secret   bool
	required bool
}

var questions = []question{
	{key: "GEMINI_API_KEY", label: "Gemini API key", secret: true, required: true},
	{key: "GEMINI_MODEL", label: "Model", fallback: "gemini-1.5-flash"},
	{key: "FITPLAN_DATA_DIR", label: "Directory for workout_plan.txt and workouts.txt", fallback: "."},
}

// Run guides the user through setup and saves the result.
func (w *Wizard) Run() error {
	fmt.Fprintln(w.Out, "🏋️ Fitplan Configuration Setup")
	fmt.Fprintln(w.Out, "This wizard stores your settings in", w.EnvPath)
	fmt.Fprintln(w.Out)

	vars, err := godotenv.Read(w.EnvPath)
	if errors.Is(err, os.ErrNotExist) {
		vars = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("failed to read %s: %v", w.EnvPath, err)
	}

	if vars["GEMINI_API_KEY"] == "" {
		fmt.Fprintln(w.Out, "To generate plans you need a Gemini API key:")
		fmt.Fprintln(w.Out, "1. Open https://aistudio.google.com/app/apikey")
		fmt.Fprintln(w.Out, "2. Create a key")
		fmt.Fprintln(w.Out, "3. Paste it below")
		fmt.Fprintln(w.Out)
	}

	for _, q := range questions {
		v, err := w.ask(q, vars[q.key])
		if err != nil {
			return err
		}
		vars[q.key] = v
	}

	if err := godotenv.Write(vars, w.EnvPath); err != nil {
		return fmt.Errorf("failed to save %s: %v", w.EnvPath, err)
	}

	fmt.Fprintln(w.Out)
	fmt.Fprintf(w.Out, "✅ Configuration saved to %s\n", w.EnvPath)
	fmt.Fprintln(w.Out, "You can now run 'fitplan generate' to create your first plan.")
	return nil
}

func (w *Wizard) ask(q question, current string) (string, error) {
	def := current
	if def == "" {
		def = q.fallback
	}

	switch {
	case def != "" && q.secret:
		fmt.Fprintf(w.Out, "Enter your %s (current: %s***): ", q.label, mask(def))
	case def != "":
		fmt.Fprintf(w.Out, "%s [%s]: ", q.label, def)
	default:
		fmt.Fprintf(w.Out, "Enter your %s: ", q.label)
	}

	answer, err := w.In.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = def
	}
	if answer == "" && q.required {
		return "", fmt.Errorf("%s is required", q.label)
	}
	return answer, nil
}

func mask(s string) string {
	return s[:min(8, len(s))]
}
