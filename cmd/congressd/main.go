// Package main provides the ingestion command: it mirrors one or more
// congress.gov resource families into the configured store for a date
// window derived from the run mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"congressd/internal/config"
	"congressd/internal/congress"
	"congressd/internal/governor"
	"congressd/internal/logger"
	"congressd/internal/models"
	"congressd/internal/runner"
	"congressd/internal/store"
	"congressd/pkg/dates"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	mode := flag.String("mode", "incremental", "Run mode: incremental, refresh, or bulk")
	startDate := flag.String("start-date", "", "Window start (YYYY-MM-DD, refresh mode)")
	endDate := flag.String("end-date", "", "Window end (YYYY-MM-DD, refresh mode)")
	lookbackDays := flag.Int("lookback-days", 0, "Days to look back (incremental mode; config default when 0)")
	familiesFlag := flag.String("families", "all", "Comma-separated resource families, or 'all'")
	pageCap := flag.Int("page-cap", 0, "Maximum pages per traversal (0 = unlimited)")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLoggerWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	req, err := buildRequest(cfg, *mode, *startDate, *endDate, *lookbackDays, *familiesFlag)
	if err != nil {
		log.Error("Invalid run request", "error", err.Error())
		flag.PrintDefaults()
		os.Exit(1)
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		log.Error("Missing API key", "env", config.APIKeyEnv, "error", err.Error())
		os.Exit(1)
	}

	log.Info("Starting ingestion",
		"mode", string(req.Mode),
		"families", len(req.Families),
		"config", cfg.String(),
	)

	client := congress.NewClient(cfg, apiKey, log)
	pacer := governor.New(cfg.API.RateLimit.RequestsPerSecond, cfg.RateFor)
	st := store.NewDynamoStore(cfg.Store)

	r := runner.New(cfg, log, client, pacer, st, *pageCap)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := r.Run(ctx, req)
	if err != nil {
		log.Error("Run failed", "error", err.Error())
	}

	fmt.Print(report.Render())

	os.Exit(exitCode(report.State))
}

// buildRequest assembles the run request from flags, resolving the
// window arguments the mode requires.
func buildRequest(cfg *config.Config, mode, startDate, endDate string, lookbackDays int, familiesFlag string) (*models.RunRequest, error) {
	runMode, err := models.ParseRunMode(mode)
	if err != nil {
		return nil, err
	}

	families, err := models.ParseFamilies(familiesFlag)
	if err != nil {
		return nil, err
	}

	req := &models.RunRequest{
		Mode:     runMode,
		Families: families,
	}

	switch runMode {
	case models.ModeIncremental:
		req.LookbackDays = lookbackDays
		if req.LookbackDays == 0 {
			req.LookbackDays = cfg.Ingest.DefaultLookbackDays
		}

	case models.ModeRefresh:
		from, err := dates.Parse(startDate)
		if err != nil {
			return nil, fmt.Errorf("start-date: %w", err)
		}

		to, err := dates.Parse(endDate)
		if err != nil {
			return nil, fmt.Errorf("end-date: %w", err)
		}

		req.Window = models.NewWindow(from, to)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

func exitCode(state runner.State) int {
	switch state {
	case runner.StateOK:
		return 0
	case runner.StatePartial:
		return 2
	default:
		return 1
	}
}
