package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/app"
	"github.com/briangreenhill/fitplan/internal/config"
	"github.com/briangreenhill/fitplan/internal/domain"
	"github.com/briangreenhill/fitplan/internal/jobs"
	"github.com/briangreenhill/fitplan/internal/logging"
	"github.com/briangreenhill/fitplan/internal/setup"
	"github.com/briangreenhill/fitplan/internal/store"
)

const version = "v0.1.0"

func main() {
	if err := runCLI(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	c := &cli{
		out:        os.Stdout,
		errOut:     os.Stderr,
		in:         os.Stdin,
		fs:         afero.NewOsFs(),
		envPath:    ".env",
		loadConfig: config.Load,
		newQueue: func(addr string) (jobs.Enqueuer, io.Closer) {
			client := asynq.NewClient(asynq.RedisClientOpt{Addr: addr})
			return client, client
		},
	}
	return c.run(args)
}

type cli struct {
	out        io.Writer
	errOut     io.Writer
	in         io.Reader
	fs         afero.Fs
	envPath    string
	loadConfig func() (*config.Config, error)
	newQueue   func(addr string) (jobs.Enqueuer, io.Closer)
}

func (c *cli) run(args []string) error {
	if len(args) == 0 {
		c.usage()
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		c.usage()
	case "version", "--version", "-v":
		fmt.Fprintln(c.out, "Fitplan", version)
	case "setup":
		w := &setup.Wizard{In: bufio.NewReader(c.in), Out: c.out, EnvPath: c.envPath}
		return w.Run()
	case "generate":
		return c.generate(args[1:])
	case "plan":
		return c.showPlan()
	case "log":
		return c.workoutLog(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return nil
}

func (c *cli) usage() {
	fmt.Fprintln(c.out, "Usage: fitplan <command> [options]")
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  generate --goals G --time T [--level L] [--fav F] [--special S] [--async]")
	fmt.Fprintln(c.out, "                      Generate a weekly workout plan")
	fmt.Fprintln(c.out, "  plan                Show the current workout plan")
	fmt.Fprintln(c.out, "  log add --name N [--date D] [--duration M | --sets S --reps R [--weight W]] [--notes X]")
	fmt.Fprintln(c.out, "  log list            List logged workouts with their index")
	fmt.Fprintln(c.out, "  log recent N        Show the N most recent workouts")
	fmt.Fprintln(c.out, "  log range FROM TO   Show workouts between two dates (YYYY-MM-DD)")
	fmt.Fprintln(c.out, "  log rm INDEX        Remove the workout at INDEX")
	fmt.Fprintln(c.out, "  log plan            Save the current plan into the workout log")
	fmt.Fprintln(c.out, "  setup               Store your API key and settings in .env")
	fmt.Fprintln(c.out, "  version             Show version")
	fmt.Fprintln(c.out, "Environment:")
	fmt.Fprintln(c.out, "  GEMINI_API_KEY      Your Gemini API key (required for generate)")
	fmt.Fprintln(c.out, "  FITPLAN_DATA_DIR    Where workout_plan.txt and workouts.txt live (default .)")
	fmt.Fprintln(c.out, "  FITPLAN_PROMPT_PATH Custom prompt template (optional)")
}

// open loads config and builds the application context.
func (c *cli) open() (*app.App, *config.Config, zerolog.Logger, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	log := logging.NewWithWriter(c.errOut, cfg.LogLevel, cfg.LogPretty)
	a, err := app.FromConfig(cfg, c.fs, log)
	if err != nil && a == nil {
		return nil, nil, log, err
	}
	if err != nil {
		log.Warn().Err(err).Msg("workout log could not be read, it stays read-only until it loads")
	}
	return a, cfg, log, nil
}

func (c *cli) generate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	goals := fs.String("goals", "", "fitness goals (required)")
	level := fs.String("level", domain.LevelBeginner, "Beginner, Intermediate or Advanced")
	timeCommit := fs.String("time", "", "time commitment, e.g. '3 hours a week' (required)")
	fav := fs.String("fav", "", "favorite exercises")
	special := fs.String("special", "", "injuries or other special conditions")
	async := fs.Bool("async", false, "queue the generation for the worker")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prefs := domain.Preferences{
		Goals:             *goals,
		Level:             *level,
		Time:              *timeCommit,
		Favorites:         *fav,
		SpecialConditions: *special,
	}

	a, cfg, _, err := c.open()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *async {
		q, closer := c.newQueue(cfg.RedisAddr)
		defer closer.Close()
		id, err := jobs.EnqueueGeneratePlan(ctx, q, prefs)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Plan generation queued (job %s). Run 'fitplan plan' once the worker is done.\n", id)
		return nil
	}

	if err := prefs.Normalize().Validate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(c.errOut, "Generating your workout plan...")
	plan, err := a.GeneratePlan(ctx, prefs)
	if plan == nil {
		return err
	}
	fmt.Fprintln(c.out, plan.Content)
	if err != nil {
		return fmt.Errorf("plan generated but not saved: %w", err)
	}
	return nil
}

func (c *cli) showPlan() error {
	a, _, _, err := c.open()
	if err != nil {
		return err
	}
	content, found, err := a.CurrentPlanContent()
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(c.out, "No workout plan found. Run 'fitplan generate' to create one.")
		return nil
	}
	fmt.Fprint(c.out, content)
	return nil
}

func (c *cli) workoutLog(args []string) error {
	if len(args) == 0 {
		return errors.New("log needs a subcommand: add, list, recent, range, rm or plan")
	}
	a, _, _, err := c.open()
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		return c.addWorkout(a, args[1:])
	case "list":
		c.printWorkouts(a.AllWorkouts(), true)
	case "recent":
		n := 5
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid count %q", args[1])
			}
		}
		c.printWorkouts(a.RecentWorkouts(n), false)
	case "range":
		if len(args) != 3 {
			return errors.New("usage: fitplan log range FROM TO")
		}
		from, err := store.ParseBound(args[1], false)
		if err != nil {
			return fmt.Errorf("invalid FROM date: %v", err)
		}
		to, err := store.ParseBound(args[2], true)
		if err != nil {
			return fmt.Errorf("invalid TO date: %v", err)
		}
		c.printWorkouts(a.WorkoutsByDateRange(from, to), false)
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: fitplan log rm INDEX")
		}
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}
		rec, err := a.RemoveWorkoutAt(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed %s (%s)\n", rec.Name, rec.Timestamp.Format(store.DateLayout))
	case "plan":
		rec, err := a.SavePlanAsWorkout()
		if errors.Is(err, app.ErrNoPlan) {
			return errors.New("no workout plan found - run 'fitplan generate' first")
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Saved %q to your workout log\n", rec.Name)
	default:
		return fmt.Errorf("unknown log command: %s", args[0])
	}
	return nil
}

func (c *cli) addWorkout(a *app.App, args []string) error {
	fs := flag.NewFlagSet("log add", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	name := fs.String("name", "", "exercise name (required)")
	date := fs.String("date", "", "when, as 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD (default now)")
	duration := fs.Int("duration", 0, "duration in minutes")
	sets := fs.String("sets", "", "number of sets")
	reps := fs.String("reps", "", "reps per set")
	weight := fs.String("weight", "", "weight in lbs")
	desc := fs.String("desc", "", "description (derived from duration or sets when empty)")
	notes := fs.String("notes", "", "notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ts := time.Now()
	if *date != "" {
		t, err := store.ParseBound(*date, false)
		if err != nil {
			return fmt.Errorf("invalid date: %v", err)
		}
		ts = t
	}

	rec, err := domain.WorkoutEntry{
		Name:            *name,
		Timestamp:       ts,
		DurationMinutes: *duration,
		Sets:            *sets,
		Reps:            *reps,
		Weight:          *weight,
		Description:     *desc,
		Notes:           *notes,
	}.Record()
	if err != nil {
		return err
	}
	if err := a.AddWorkout(rec); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged %s: %s\n", rec.Name, rec.Description)
	return nil
}

func (c *cli) printWorkouts(records []domain.WorkoutRecord, indexed bool) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "No workouts logged.")
		return
	}
	for i, r := range records {
		prefix := ""
		if indexed {
			prefix = fmt.Sprintf("[%d] ", i)
		}
		line := fmt.Sprintf("%s%s  %s", prefix, r.Timestamp.Format(store.DateLayout), r.Name)
		if r.Description != "" {
			line += " - " + firstLine(r.Description)
		}
		if r.Notes != "" {
			line += " (" + firstLine(r.Notes) + ")"
		}
		fmt.Fprintln(c.out, line)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
