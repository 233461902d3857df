package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler-api/internal/csvio"
	"github.com/noah-isme/class-scheduler-api/internal/models"
	"github.com/noah-isme/class-scheduler-api/internal/scheduler"
	"github.com/noah-isme/class-scheduler-api/internal/service"
	"github.com/noah-isme/class-scheduler-api/pkg/config"
	"github.com/noah-isme/class-scheduler-api/pkg/logger"
	"github.com/noah-isme/class-scheduler-api/pkg/storage"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitConflicts = 2
)

type options struct {
	courses     string
	rooms       string
	teachers    string
	delimiter   string
	scope       models.Scope
	seed        int64
	generations int
	maxSteps    int
	timeout     time.Duration
	format      string
	out         string
	termStart   string
	weeks       int
	logLevel    string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.courses, "courses", "courses.csv", "course catalog CSV")
	flag.StringVar(&opts.rooms, "rooms", "rooms.csv", "room catalog CSV")
	flag.StringVar(&opts.teachers, "teachers", "teachers.csv", "teacher catalog CSV")
	flag.StringVar(&opts.delimiter, "delimiter", ",", "field delimiter of the CSV files")
	flag.IntVar(&opts.scope.Year, "year", 1, "cohort year (1-4)")
	flag.StringVar(&opts.scope.Branch, "branch", "", "cohort branch")
	flag.StringVar(&opts.scope.Division, "division", "", "cohort division")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed; 0 picks one from the clock")
	flag.IntVar(&opts.generations, "generations", 0, "refinement generations; 0 disables refinement")
	flag.IntVar(&opts.maxSteps, "max-steps", scheduler.DefaultBudget.MaxSteps, "repair step budget")
	flag.DurationVar(&opts.timeout, "timeout", scheduler.DefaultBudget.Timeout, "repair time budget")
	flag.StringVar(&opts.format, "format", string(service.ExportCSV), "output format: csv, pdf, xlsx or ics")
	flag.StringVar(&opts.out, "out", "./timetables", "output directory")
	flag.StringVar(&opts.termStart, "term-start", "", "first teaching day for ics output (YYYY-MM-DD)")
	flag.IntVar(&opts.weeks, "weeks", 16, "teaching weeks for ics output")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level")
	flag.Parse()

	logr, err := logger.New(&config.Config{
		Env: config.EnvDevelopment,
		Log: config.LogConfig{Level: opts.logLevel, Format: "console"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(exitFailure)
	}

	code := run(context.Background(), opts, logr)
	_ = logr.Sync()
	os.Exit(code)
}

func run(ctx context.Context, opts options, logr *zap.Logger) int {
	if err := opts.scope.Validate(); err != nil {
		logr.Error("invalid scope", zap.Error(err))
		return exitFailure
	}
	format, err := service.ParseExportFormat(opts.format)
	if err != nil {
		logr.Error("invalid format", zap.Error(err))
		return exitFailure
	}
	delimiter := []rune(opts.delimiter)
	if len(delimiter) != 1 {
		logr.Error("delimiter must be a single character", zap.String("delimiter", opts.delimiter))
		return exitFailure
	}

	grid := scheduler.DefaultGrid()
	loader := csvio.NewLoader(grid.Slots)
	loader.Delimiter = delimiter[0]
	catalog, err := loader.LoadFiles(opts.courses, opts.rooms, opts.teachers)
	if err != nil {
		logr.Error("failed to load catalog", zap.Error(err))
		return exitFailure
	}
	courses := lo.Filter(catalog.Courses, func(c models.Course, _ int) bool { return c.Scope() == opts.scope })
	logr.Info("catalog loaded",
		zap.Int("courses", len(courses)),
		zap.Int("rooms", len(catalog.Rooms)),
		zap.Int("teachers", len(catalog.Teachers)),
	)

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	in := scheduler.Input{Scope: opts.scope, Courses: courses, Rooms: catalog.Rooms, Teachers: catalog.Teachers}

	built, err := scheduler.NewConstructor(grid, rng).Construct(in)
	if err != nil {
		logr.Error("construction failed", zap.Error(err))
		return exitFailure
	}
	for _, u := range built.Unplaced {
		logr.Warn("sessions not placed", zap.String("course", u.Code), zap.String("type", string(u.LectureType)), zap.Int("sessions", u.Sessions))
	}

	entries := built.Entries
	if opts.generations > 0 {
		refined, err := scheduler.NewRefiner(grid, rng).Refine(in, entries, scheduler.RefineOptions{Generations: opts.generations})
		if err != nil {
			logr.Error("refinement failed", zap.Error(err))
			return exitFailure
		}
		entries = refined.Entries
	}

	lookup := scheduler.NewCatalog(courses, catalog.Rooms, catalog.Teachers)
	code := exitOK
	if conflicts := scheduler.DetectConflicts(entries, lookup); len(conflicts) > 0 {
		solver := scheduler.NewSolver(grid, lookup, scheduler.Budget{MaxSteps: opts.maxSteps, Timeout: opts.timeout})
		result, err := solver.Repair(ctx, entries)
		switch {
		case err == nil:
			logr.Info("conflicts repaired", zap.Int("conflicts", len(conflicts)), zap.Int("steps", result.Steps), zap.Int("moved", result.Moved))
			entries = result.Entries
		case errors.Is(err, scheduler.ErrBudgetExceeded), errors.Is(err, scheduler.ErrSearchExhausted):
			logr.Warn("conflicts remain", zap.Int("conflicts", len(conflicts)), zap.String("state", result.State.String()), zap.Error(err))
			code = exitConflicts
		default:
			logr.Error("repair failed", zap.Error(err))
			return exitFailure
		}
	}

	score := scheduler.Evaluate(grid, entries, lookup)
	schedule := &models.Schedule{
		ID:       uuid.NewString(),
		Year:     opts.scope.Year,
		Branch:   opts.scope.Branch,
		Division: opts.scope.Division,
		Score:    score.Total,
		Entries:  entries,
	}

	exporter := service.NewExportService(nil, nil, nil, nil, grid, service.ExportConfig{
		TermStart: parseTermStart(opts.termStart),
		Weeks:     opts.weeks,
	}, logr)
	file, err := exporter.Render(schedule, lookup, format)
	if err != nil {
		logr.Error("render failed", zap.Error(err))
		return exitFailure
	}
	store, err := storage.NewLocalStorage(opts.out)
	if err != nil {
		logr.Error("output directory unavailable", zap.Error(err))
		return exitFailure
	}
	path, err := store.Save(file.Filename, file.Body)
	if err != nil {
		logr.Error("write failed", zap.Error(err))
		return exitFailure
	}

	logr.Info("timetable written",
		zap.String("path", path),
		zap.Int64("seed", seed),
		zap.Int("entries", score.Entries),
		zap.Int("conflicts", score.Conflicts),
		zap.Float64("score", score.Total),
	)
	return code
}

func parseTermStart(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
