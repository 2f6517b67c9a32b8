// Package exporter drives one latency report run: query every
// application, render the workbook, publish it and announce the link.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"latencyreport/collector"
	"latencyreport/metrics"
	"latencyreport/report"
)

const (
	SuccessMessage = "The Prometheus request latency report has been successfully generated and uploaded to S3. A notification has been sent to Slack."
	FailureMessage = "Error generating or uploading the report or sending the message to Slack."

	notificationTemplate = "✅ Done! The report for %s (last %s) has been successfully generated and uploaded to S3.\n" +
		"🔗 You can download it from the following link:\n%s"
)

// Fetcher runs one range query.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (collector.Result, error)
}

// Publisher uploads the saved report and returns its download link.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Options are the per-run settings taken from configuration.
type Options struct {
	BaseURL      string
	Applications []string
	Statuses     []string
	Window       time.Duration
	Step         time.Duration
	OutputDir    string
	Location     *time.Location
	KeepLocal    bool
}

type Exporter struct {
	opts      Options
	fetcher   Fetcher
	publisher Publisher
	notifier  Notifier
	metrics   *metrics.Run
	log       *zap.Logger

	// Now is the run clock, read once per Run.
	Now func() time.Time
}

// New wires the pipeline. A nil run gets a fresh metrics.Run that is
// simply never pushed.
func New(opts Options, f Fetcher, p Publisher, n Notifier, run *metrics.Run, log *zap.Logger) *Exporter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Window <= 0 {
		opts.Window = collector.DefaultWindow
	}
	if opts.OutputDir == "" {
		opts.OutputDir = os.TempDir()
	}
	if run == nil {
		run = metrics.NewRun()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		opts:      opts,
		fetcher:   f,
		publisher: p,
		notifier:  n,
		metrics:   run,
		log:       log,
		Now:       time.Now,
	}
}

// Run executes the pipeline once and returns SuccessMessage or
// FailureMessage. Notification errors are logged and do not change the
// outcome.
func (e *Exporter) Run(ctx context.Context) string {
	now := e.Now()
	e.log.Info("report run started",
		zap.Time("now", now),
		zap.Strings("applications", e.opts.Applications),
		zap.Strings("statuses", e.opts.Statuses))

	link, err := e.generate(ctx, now)
	if err != nil {
		e.log.Error("report run failed", zap.Error(err))
		e.metrics.Finish(false, e.Now().Sub(now), now)
		return FailureMessage
	}

	message := fmt.Sprintf(notificationTemplate,
		now.In(e.opts.Location).Format(time.DateOnly), windowText(e.opts.Window), link)
	if err := e.notifier.Notify(ctx, message); err != nil {
		e.log.Warn("notification not delivered", zap.Error(err))
	}
	e.metrics.Finish(true, e.Now().Sub(now), now)
	e.log.Info("report run finished", zap.String("link", link))
	return SuccessMessage
}

// generate builds, saves and publishes the workbook, returning the link.
func (e *Exporter) generate(ctx context.Context, now time.Time) (string, error) {
	qb, err := collector.NewQueryBuilder(e.opts.BaseURL, now, e.opts.Window, e.opts.Step)
	if err != nil {
		return "", err
	}
	wb, err := report.NewWorkbook(e.log)
	if err != nil {
		return "", fmt.Errorf("create workbook: %w", err)
	}
	defer wb.Close()

	parser := collector.NewParser(e.opts.Location)
	parseHTTP := func(body []byte) ([]report.Row, error) {
		rows, err := parser.ParseHTTP(body)
		return report.Rows(rows), err
	}
	parseRepository := func(body []byte) ([]report.Row, error) {
		rows, err := parser.ParseRepository(body)
		return report.Rows(rows), err
	}

	for _, app := range e.opts.Applications {
		for _, status := range e.opts.Statuses {
			name := report.SheetName(app, status)
			if err := e.sheet(ctx, wb, qb.HTTPLatencyURL(app, status), name, report.HTTPLatency, parseHTTP); err != nil {
				return "", err
			}
		}
	}
	for _, app := range e.opts.Applications {
		name := report.SheetName(app, report.RepositoriesSuffix)
		if err := e.sheet(ctx, wb, qb.RepositoryLatencyURL(app), name, report.RepositoryLatency, parseRepository); err != nil {
			return "", err
		}
	}

	path, err := wb.Save(e.opts.OutputDir, report.FileName(now.In(e.opts.Location)))
	if err != nil {
		return "", err
	}
	link, err := e.publisher.Publish(ctx, path)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", path, err)
	}
	if !e.opts.KeepLocal {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.log.Warn("local report not removed", zap.String("path", path), zap.Error(err))
		}
	}
	return link, nil
}

// sheet fetches one query and renders it as sheet name. Absent data
// skips the sheet; anything else that goes wrong aborts the run.
func (e *Exporter) sheet(ctx context.Context, wb *report.Workbook, rawURL, name string, v report.Variant,
	parse func([]byte) ([]report.Row, error)) error {
	res, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	if res.Absent() {
		e.log.Info("no data, sheet skipped", zap.String("sheet", name), zap.Int("status_code", res.StatusCode))
		e.metrics.SheetSkipped(v.Name)
		return nil
	}
	rows, err := parse(res.Body)
	if err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	if err := wb.WriteSheet(name, v, rows); err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	e.metrics.SheetWritten(v.Name, len(rows))
	return nil
}

// windowText renders the query window for the notification: "24 hours",
// "1 hour", "90 minutes", or the Go duration otherwise.
func windowText(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d == time.Minute:
		return "1 minute"
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}
