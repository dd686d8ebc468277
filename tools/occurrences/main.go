// Command occurrences renders the upcoming firings of an alarm described in a YAML plan
// to XLSX or PDF.
//
//	occurrences -plan plan.yaml -alarm alarm-1 -from 2026-03-01T00:00:00Z -format xlsx -out alarm.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	alarmapp "alarm-cloud/internal/alarms/application"
	"alarm-cloud/internal/alarms/catalog"
	"alarm-cloud/internal/alarms/interfaces/export"
	"alarm-cloud/internal/logging"
)

type options struct {
	planFile    string
	catalogFile string
	alarmID     string
	from        time.Time
	horizonDays int
	limit       int
	format      string
	out         string
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func main() {
	logger, err := logging.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, logger); err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("occurrences", flag.ContinueOnError)
	var (
		opts options
		from string
	)
	fs.StringVar(&opts.planFile, "plan", "", "YAML plan with users, alarms, exception periods and preferences")
	fs.StringVar(&opts.catalogFile, "holidays", "", "optional YAML holiday catalog")
	fs.StringVar(&opts.alarmID, "alarm", "", "alarm id to export")
	fs.StringVar(&from, "from", "", "RFC3339 start instant (default now)")
	fs.IntVar(&opts.horizonDays, "horizon", 30, "horizon in days")
	fs.IntVar(&opts.limit, "limit", 0, "maximum occurrences, 0 for all in horizon")
	fs.StringVar(&opts.format, "format", "", "xlsx or pdf (default from -out extension)")
	fs.StringVar(&opts.out, "out", "", "output file")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.planFile == "" || opts.alarmID == "" || opts.out == "" {
		return options{}, errors.New("occurrences: -plan, -alarm and -out are required")
	}
	if opts.horizonDays < 1 {
		return options{}, errors.New("occurrences: -horizon must be positive")
	}
	opts.from = time.Now().UTC()
	if from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return options{}, fmt.Errorf("occurrences: -from: %w", err)
		}
		opts.from = parsed.UTC()
	}
	if opts.format == "" {
		opts.format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.out)), ".")
	}
	return opts, nil
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	f, err := os.Open(opts.planFile)
	if err != nil {
		return err
	}
	store, userLocales, err := loadPlan(ctx, f)
	_ = f.Close()
	if err != nil {
		return err
	}

	var overrides alarmapp.OverrideRepository = store
	if opts.catalogFile != "" {
		holidays, err := catalog.Load(opts.catalogFile)
		if err != nil {
			return err
		}
		overrides, err = catalog.NewOverrideRepository(store, holidays, userLocales)
		if err != nil {
			return err
		}
	}

	service, err := alarmapp.NewService(store, overrides,
		alarmapp.WithClock(fixedClock{now: opts.from}),
		alarmapp.WithHorizonDays(opts.horizonDays),
		alarmapp.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	alarm, occurrences, err := service.Upcoming(ctx, opts.alarmID, opts.limit)
	if err != nil {
		return err
	}

	data, err := export.Build(opts.format, export.Report{
		Alarm:       *alarm,
		From:        opts.from,
		HorizonDays: opts.horizonDays,
		Occurrences: occurrences,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return err
	}
	logger.Info("occurrences exported",
		zap.String("alarm_id", opts.alarmID),
		zap.Int("occurrences", len(occurrences)),
		zap.String("file", opts.out),
	)
	return nil
}
