// Package main provides the export command: it reads stored records
// for one resource family and writes them to a file or stdout as JSON
// or CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"congressd/internal/config"
	"congressd/internal/export"
	"congressd/internal/logger"
	"congressd/internal/models"
	"congressd/internal/store"
	"congressd/pkg/dates"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	familyFlag := flag.String("type", "", "Resource family to export (required)")
	formatFlag := flag.String("format", "json", "Output format: json or csv")
	output := flag.String("output", "", "Output file (stdout when empty)")
	startDate := flag.String("start-date", "", "Lower update_date bound (YYYY-MM-DD, optional)")
	endDate := flag.String("end-date", "", "Upper update_date bound (YYYY-MM-DD, optional)")

	flag.Parse()

	if *familyFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: -type flag is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLoggerWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	opts, err := buildOptions(*familyFlag, *formatFlag, *startDate, *endDate)
	if err != nil {
		log.Error("Invalid export request", "error", err.Error())
		os.Exit(1)
	}

	out := os.Stdout

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Error("Failed to create output file", "path", *output, "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			_ = f.Close()
		}()

		out = f
	}

	exporter := export.New(store.NewDynamoStore(cfg.Store), log)

	count, err := exporter.Export(context.Background(), out, opts)
	if err != nil {
		log.Error("Export failed", "error", err.Error())
		os.Exit(1)
	}

	log.Info("Export complete", "family", string(opts.Family), "records", count)
}

// buildOptions validates the flags into export options. Date bounds
// must come as a pair.
func buildOptions(familyFlag, formatFlag, startDate, endDate string) (export.Options, error) {
	family, err := models.ParseFamily(familyFlag)
	if err != nil {
		return export.Options{}, err
	}

	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return export.Options{}, err
	}

	if (startDate == "") != (endDate == "") {
		return export.Options{}, fmt.Errorf("start-date and end-date must be provided together")
	}

	if startDate != "" {
		if _, err := dates.Parse(startDate); err != nil {
			return export.Options{}, fmt.Errorf("start-date: %w", err)
		}

		if _, err := dates.Parse(endDate); err != nil {
			return export.Options{}, fmt.Errorf("end-date: %w", err)
		}
	}

	return export.Options{
		Family: family,
		From:   startDate,
		To:     endDate,
		Format: format,
	}, nil
}
