/*
main.go - Command-line stipend run

PURPOSE:
  Computes one month of stipends from an attendance file or the event store
  and writes a report, or prints the results as JSON.

COMMAND-LINE FLAGS:
  -in            Attendance file (.csv or .xlsx)
  -db            SQLite event store (instead of -in; needs -month)
  -month         Month to compute, YYYY-MM
  -working-days  Study days in the month (default: counted from the calendar)
  -out           Report file (.csv, .xlsx or .pdf); JSON on stdout if empty
  -policy        Policy JSON overriding the defaults
  -locale        Warning and report language (he, en)
  -pdf-font      UTF-8 TrueType font for PDF reports

EXAMPLES:
  stipend -in march.xlsx -working-days 21 -out march-report.xlsx
  stipend -db kollel.db -month 2024-04 -locale en
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kollel/stipend-engine/config"
	"github.com/kollel/stipend-engine/factory"
	"github.com/kollel/stipend-engine/generic"
	"github.com/kollel/stipend-engine/i18n"
	"github.com/kollel/stipend-engine/ingest"
	"github.com/kollel/stipend-engine/logger"
	"github.com/kollel/stipend-engine/report"
	"github.com/kollel/stipend-engine/stipend"
	"github.com/kollel/stipend-engine/store/sqlite"
)

type options struct {
	in, db, month, out, policy, locale, pdfFont string
	workingDays                                 int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.in, "in", "", "attendance file (.csv or .xlsx)")
	flag.StringVar(&opts.db, "db", "", "SQLite event store to read instead of -in")
	flag.StringVar(&opts.month, "month", "", "month to compute (YYYY-MM)")
	flag.IntVar(&opts.workingDays, "working-days", cfg.WorkingDays, "study days in the month")
	flag.StringVar(&opts.out, "out", "", "report file (.csv, .xlsx, .pdf); JSON on stdout when empty")
	flag.StringVar(&opts.policy, "policy", cfg.PolicyFile, "policy JSON file")
	flag.StringVar(&opts.locale, "locale", cfg.Locale, "language (he, en)")
	flag.StringVar(&opts.pdfFont, "pdf-font", cfg.Report.PDFFont, "UTF-8 TrueType font for PDF reports")
	flag.Parse()

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if (opts.in == "") == (opts.db == "") {
		fmt.Fprintln(os.Stderr, "stipend: exactly one of -in or -db is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, opts, log); err != nil {
		fmt.Fprintf(os.Stderr, "stipend: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log *zap.Logger) error {
	if err := i18n.Init(opts.locale); err != nil {
		return err
	}
	locale := i18n.Normalize(opts.locale)

	policy := stipend.DefaultPolicy()
	if opts.policy != "" {
		p, err := factory.NewPolicyFactory().ParsePolicyFile(opts.policy)
		if err != nil {
			return err
		}
		policy = p
	}
	engine, err := stipend.NewEngine(policy, stipend.WithLogger(log), stipend.WithLocale(locale))
	if err != nil {
		return err
	}

	var period generic.Period
	if opts.month != "" {
		if period, err = generic.ParseMonth(opts.month); err != nil {
			return err
		}
	}

	var (
		table *ingest.Table
		cal   = generic.NewStaticHolidayCalendar(cfg.Calendar.Holidays...)
	)
	if opts.db != "" {
		if opts.month == "" {
			return fmt.Errorf("%w: -db needs -month", generic.ErrInvalidPeriod)
		}
		store, err := sqlite.New(opts.db)
		if err != nil {
			return err
		}
		defer store.Close()
		if table, err = store.Source(period).ReadTable(ctx); err != nil {
			return err
		}
		stored, err := ingest.CalendarFor(ctx, store, period)
		if err != nil {
			return err
		}
		for d, name := range stored {
			cal[d] = name
		}
	} else if table, err = ingest.ReadFile(opts.in); err != nil {
		return err
	}

	batch, err := ingest.Normalize(table)
	if err != nil {
		return err
	}

	batch.WorkingDays = opts.workingDays
	if batch.WorkingDays <= 0 {
		if opts.month == "" {
			p, ok := ingest.DominantMonth(batch.Events)
			if !ok {
				return fmt.Errorf("%w: no events and no -working-days", generic.ErrInvalidWorkingDays)
			}
			period = p
		}
		batch.WorkingDays = period.WorkingDays(cfg.Calendar.Weekend, cal)
		log.Info("working days from calendar",
			zap.String("month", period.String()),
			zap.Int("working_days", batch.WorkingDays))
	}

	res, err := engine.ComputeBatch(batch)
	if err != nil {
		return err
	}

	if opts.out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeReport(res, locale, opts, log)
}

func writeReport(res *stipend.BatchResult, locale string, opts options, log *zap.Logger) error {
	format, err := report.FormatFromName(opts.out)
	if err != nil {
		return err
	}
	exp, err := report.New(format, report.Options{PDFFont: opts.pdfFont, Logger: log})
	if err != nil {
		return err
	}
	rep := report.Build(res, locale)
	body, err := exp.Render(rep)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if err := os.WriteFile(opts.out, body, 0o644); err != nil {
		return err
	}
	for _, w := range rep.Warnings {
		log.Warn("report warning", zap.String("warning", w))
	}
	log.Info("report written",
		zap.String("file", opts.out),
		zap.String("run_id", res.RunID),
		zap.Int("students", len(res.Results)))
	if len(res.Anomalies) > 0 {
		log.Warn("unreadable time values", zap.Int("count", len(res.Anomalies)))
	}
	return nil
}
