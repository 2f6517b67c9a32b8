package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"latencyreport/collector"
	"latencyreport/config"
	"latencyreport/exporter"
	"latencyreport/logger"
	"latencyreport/metrics"
	"latencyreport/notifier"
	"latencyreport/storage"
)

func main() {
	configPath := flag.String("config", "", "path to the config file (default ./configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	base, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error setting up logger:", err)
		os.Exit(1)
	}
	log := logger.WithRunID(base.Logger, uuid.NewString())
	defer logger.Flush(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(run(ctx, cfg, log))
}

// run builds the pipeline from cfg and executes it once.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) string {
	client := collector.NewClient(cfg.Prometheus.Timeout, log)
	client.Username = cfg.Prometheus.Username
	client.Password = cfg.Prometheus.Password

	publisher, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("storage setup failed", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		return exporter.FailureMessage
	}
	slack, err := notifier.NewSlack(cfg.Slack.BotToken, cfg.Slack.Channel, cfg.Slack.APIURL, log)
	if err != nil {
		log.Error("slack setup failed", zap.Error(err))
		return exporter.FailureMessage
	}

	runMetrics := metrics.NewRun()
	e := exporter.New(exporter.Options{
		BaseURL:      cfg.Prometheus.BaseURL,
		Applications: cfg.Report.Applications,
		Statuses:     cfg.Report.Statuses,
		Window:       cfg.Prometheus.Window,
		Step:         cfg.Prometheus.Step,
		OutputDir:    cfg.Report.OutputDir,
		Location:     cfg.Report.Location(),
		KeepLocal:    cfg.Report.KeepLocal,
	}, client, publisher, slack, runMetrics, log)

	outcome := e.Run(ctx)

	if cfg.Pushgateway.URL != "" {
		if err := runMetrics.Push(ctx, cfg.Pushgateway.URL, cfg.Pushgateway.Job); err != nil {
			log.Warn("metrics push failed", zap.Error(err))
		}
	}
	return outcome
}
