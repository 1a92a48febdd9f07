// Package main provides a health check command: it verifies the
// required environment, upstream API reachability, and store access,
// then prints a JSON status report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"congressd/internal/config"
	"congressd/internal/logger"
	"congressd/internal/store"
)

// probeTimeout bounds each individual check.
const probeTimeout = 30 * time.Second

// Check is one named health check result.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Status is the full health report.
type Status struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Checks    []Check   `json:"checks"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	skipStore := flag.Bool("skip-store", false, "Skip the store table check")

	flag.Parse()

	log := logger.NewLogger("warn")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	status := Status{Healthy: true, CheckedAt: time.Now().UTC()}

	record := func(name string, err error) {
		check := Check{Name: name, OK: err == nil}
		if err != nil {
			check.Detail = err.Error()
			status.Healthy = false
		}

		status.Checks = append(status.Checks, check)
	}

	apiKey, err := cfg.APIKey()
	record("environment", err)

	if apiKey != "" {
		record("api", probeAPI(ctx, cfg, apiKey, log))
	} else {
		record("api", fmt.Errorf("skipped: no API key"))
	}

	if *skipStore {
		status.Checks = append(status.Checks, Check{Name: "store", OK: true, Detail: "skipped"})
	} else {
		record("store", probeStore(ctx, cfg))
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering status: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(out))

	if !status.Healthy {
		os.Exit(1)
	}
}

// probeAPI issues a one-record list request against the upstream API,
// retrying transient failures so a blip does not flag an outage.
func probeAPI(ctx context.Context, cfg *config.Config, apiKey string, log *logger.Logger) error {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = probeTimeout
	client.Logger = nil

	probeURL := fmt.Sprintf("%s/bill?limit=1&format=json", cfg.API.BaseURL)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return err
	}

	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		log.Warn("API probe returned non-OK status", "status", resp.StatusCode)

		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	return nil
}

// probeStore verifies the table exists and credentials are accepted.
func probeStore(ctx context.Context, cfg *config.Config) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return store.NewDynamoStore(cfg.Store).DescribeTable(probeCtx)
}
