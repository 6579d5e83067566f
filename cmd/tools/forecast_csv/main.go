package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricepally/forecasting/internal/config"
	"github.com/pricepally/forecasting/internal/logging"
	"github.com/pricepally/forecasting/internal/queue"
	"github.com/pricepally/forecasting/internal/services"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	input := flag.String("input", "", "Transaction CSV (overrides input.path)")
	outputDir := flag.String("output-dir", "", "Output directory (overrides output.dir)")
	horizon := flag.Int("horizon", 0, "Weeks to forecast (overrides forecast.horizon)")
	now := flag.String("now", "", "Run date in YYYY-MM-DD format (default: today)")
	publish := flag.Bool("publish", false, "Publish forecast events to the configured queue")
	flag.Parse()

	if err := run(*configPath, *input, *outputDir, *horizon, *now, *publish); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, input, outputDir string, horizon int, now string, publish bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if input != "" {
		cfg.Input.Path = input
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if publish {
		cfg.Queue.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logging.SetGlobal(logger)
	logger.Info("Forecast run starting", "version", Version, "commit", GitCommit, "input", cfg.Input.Path)

	req := services.ForecastRequest{Horizon: horizon}
	if now != "" {
		if req.Now, err = time.Parse(time.DateOnly, now); err != nil {
			return fmt.Errorf("invalid -now %q: expected YYYY-MM-DD", now)
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	events, err := queue.NewEventPublisherFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect to queue: %w", err)
	}
	if events != nil {
		defer func() { _ = events.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := services.NewForecastService(logger, cfg, events)
	report, err := svc.ExecuteFile(ctx, cfg.Input.Path, req)
	if err != nil {
		if report != nil && report.FailedPath != "" {
			logger.Warn("Failed groups written", "failed_file", report.FailedPath)
		}
		return err
	}

	logger.Info("Forecast run finished",
		"forecast_file", report.ForecastPath,
		"failed_file", report.FailedPath,
		"rows", report.Result.Summary.TotalRows)
	return nil
}
