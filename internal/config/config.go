// Package config provides configuration management for the ingestion
// service. Secrets (API key, store credentials) are never read from
// the config file; they come from the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"congressd/internal/models"
	"congressd/pkg/dates"
)

// APIKeyEnv is the environment variable holding the Congress.gov key.
const APIKeyEnv = "CONGRESS_API_KEY"

// Configuration validation errors.
var (
	ErrMissingBaseURL        = errors.New("api.base_url is required")
	ErrInvalidRate           = errors.New("api.rate_limit.requests_per_second must be positive")
	ErrInvalidMaxRetries     = errors.New("api.rate_limit.max_retries must be non-negative")
	ErrInvalidRetryDelay     = errors.New("api.rate_limit.retry_delay must be non-negative")
	ErrInvalidEndpointRate   = errors.New("api.endpoint_rate_limits entries must be positive")
	ErrInvalidTimeout        = errors.New("api.timeout_config entries must have positive connect and read seconds")
	ErrMissingTableName      = errors.New("store.table_name is required")
	ErrMissingRegion         = errors.New("store.region is required")
	ErrInvalidResetFrequency = errors.New("store.deduplication.reset_frequency must be one of: per_date, per_range, per_session")
	ErrInvalidMemoryLimit    = errors.New("store.deduplication.memory_threshold_mb must be positive")
	ErrInvalidBatchSize      = errors.New("ingest.batch_size must be at least 1")
	ErrInvalidLookback       = errors.New("ingest.default_lookback_days must be at least 1")
	ErrInvalidMaxRangeDays   = errors.New("ingest.date_ranges.max_range_days must be at least 1")
	ErrInvalidMinDate        = errors.New("ingest.date_ranges.min_date must be a valid YYYY-MM-DD date")
	ErrMinDateTooEarly       = errors.New("ingest.date_ranges.min_date predates the 1st Congress")
	ErrInvalidMaxWorkers     = errors.New("ingest.parallel.max_workers must be between 1 and 10")
	ErrInvalidChunkSize      = errors.New("ingest.parallel.chunk_size must be at least 1")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be 'text' or 'json'")
	ErrMissingAPIKey         = errors.New("congress.gov API key not found in environment")
)

// Reset frequency values for the deduplication set.
const (
	ResetPerDate    = "per_date"
	ResetPerRange   = "per_range"
	ResetPerSession = "per_session"
)

// Config is the complete service configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig covers the upstream API and request pacing.
type APIConfig struct {
	BaseURL            string                   `yaml:"base_url"`
	RateLimit          RateLimitConfig          `yaml:"rate_limit"`
	EndpointRateLimits map[string]float64       `yaml:"endpoint_rate_limits"`
	TimeoutConfig      map[string]TimeoutConfig `yaml:"timeout_config"`
}

// RateLimitConfig sets the default governor pacing and retry budget.
// MaxRetries is a pointer so an explicit 0 (never retry) survives
// defaulting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        *int    `yaml:"max_retries"`
	RetryDelaySec     float64 `yaml:"retry_delay"`
}

// TimeoutConfig is a per-family (connect, read) timeout pair in seconds.
type TimeoutConfig struct {
	ConnectSec int `yaml:"connect"`
	ReadSec    int `yaml:"read"`
}

// Connect returns the connect timeout as a duration.
func (t TimeoutConfig) Connect() time.Duration {
	return time.Duration(t.ConnectSec) * time.Second
}

// Read returns the read timeout as a duration.
func (t TimeoutConfig) Read() time.Duration {
	return time.Duration(t.ReadSec) * time.Second
}

// StoreConfig covers the key-value store adapter.
type StoreConfig struct {
	TableName     string       `yaml:"table_name"`
	Region        string       `yaml:"region"`
	Endpoint      string       `yaml:"endpoint"`
	Deduplication DedupeConfig `yaml:"deduplication"`
}

// DedupeConfig controls the in-session processed-ID set.
type DedupeConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ResetFrequency    string `yaml:"reset_frequency"`
	MemoryThresholdMB int    `yaml:"memory_threshold_mb"`
}

// IngestConfig covers batching, windowing, and parallelism.
type IngestConfig struct {
	BatchSize           int             `yaml:"batch_size"`
	DefaultLookbackDays int             `yaml:"default_lookback_days"`
	DateRanges          DateRangeConfig `yaml:"date_ranges"`
	Parallel            ParallelConfig  `yaml:"parallel"`
	PageSize            int             `yaml:"page_size"`
}

// DateRangeConfig bounds requested date windows.
type DateRangeConfig struct {
	MaxRangeDays int    `yaml:"max_range_days"`
	MinDate      string `yaml:"min_date"`
}

// ParallelConfig sizes the worker set.
type ParallelConfig struct {
	MaxWorkers int `yaml:"max_workers"`
	ChunkSize  int `yaml:"chunk_size"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default values applied before validation.
const (
	DefaultBaseURL      = "https://api.congress.gov/v3"
	DefaultRate         = 5.0
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 2.0
	DefaultBatchSize    = 100
	DefaultLookbackDays = 7
	DefaultMaxRangeDays = 365
	DefaultMinDate      = "1789-03-04"
	DefaultMaxWorkers   = 3
	DefaultChunkSize    = 1
	DefaultPageSize     = 250
	DefaultMemoryMB     = 256
)

// LoadConfig loads and validates configuration from a YAML file.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values with documented defaults.
func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}

	if c.API.RateLimit.RequestsPerSecond == 0 {
		c.API.RateLimit.RequestsPerSecond = DefaultRate
	}

	if c.API.RateLimit.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.API.RateLimit.MaxRetries = &retries
	}

	if c.API.RateLimit.RetryDelaySec == 0 {
		c.API.RateLimit.RetryDelaySec = DefaultRetryDelay
	}

	if c.Store.Deduplication.ResetFrequency == "" {
		c.Store.Deduplication.ResetFrequency = ResetPerDate
	}

	if c.Store.Deduplication.MemoryThresholdMB == 0 {
		c.Store.Deduplication.MemoryThresholdMB = DefaultMemoryMB
	}

	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = DefaultBatchSize
	}

	if c.Ingest.DefaultLookbackDays == 0 {
		c.Ingest.DefaultLookbackDays = DefaultLookbackDays
	}

	if c.Ingest.DateRanges.MaxRangeDays == 0 {
		c.Ingest.DateRanges.MaxRangeDays = DefaultMaxRangeDays
	}

	if c.Ingest.DateRanges.MinDate == "" {
		c.Ingest.DateRanges.MinDate = DefaultMinDate
	}

	if c.Ingest.Parallel.MaxWorkers == 0 {
		c.Ingest.Parallel.MaxWorkers = DefaultMaxWorkers
	}

	if c.Ingest.Parallel.ChunkSize == 0 {
		c.Ingest.Parallel.ChunkSize = DefaultChunkSize
	}

	if c.Ingest.PageSize == 0 {
		c.Ingest.PageSize = DefaultPageSize
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if c.API.RateLimit.RequestsPerSecond <= 0 {
		return ErrInvalidRate
	}

	if c.API.RateLimit.MaxRetries != nil && *c.API.RateLimit.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.API.RateLimit.RetryDelaySec < 0 {
		return ErrInvalidRetryDelay
	}

	for family, rps := range c.API.EndpointRateLimits {
		if _, err := models.ParseFamily(family); err != nil {
			return fmt.Errorf("api.endpoint_rate_limits: %w", err)
		}

		if rps <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidEndpointRate, family)
		}
	}

	for family, tc := range c.API.TimeoutConfig {
		if _, err := models.ParseFamily(family); err != nil {
			return fmt.Errorf("api.timeout_config: %w", err)
		}

		if tc.ConnectSec <= 0 || tc.ReadSec <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTimeout, family)
		}
	}

	if c.Store.TableName == "" {
		return ErrMissingTableName
	}

	if c.Store.Region == "" {
		return ErrMissingRegion
	}

	switch c.Store.Deduplication.ResetFrequency {
	case ResetPerDate, ResetPerRange, ResetPerSession:
	default:
		return ErrInvalidResetFrequency
	}

	if c.Store.Deduplication.MemoryThresholdMB < 1 {
		return ErrInvalidMemoryLimit
	}

	if c.Ingest.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.Ingest.DefaultLookbackDays < 1 {
		return ErrInvalidLookback
	}

	if c.Ingest.DateRanges.MaxRangeDays < 1 {
		return ErrInvalidMaxRangeDays
	}

	minDate, err := dates.Parse(c.Ingest.DateRanges.MinDate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMinDate, err)
	}

	if minDate.Before(models.MinRecordDate) {
		return ErrMinDateTooEarly
	}

	if c.Ingest.Parallel.MaxWorkers < 1 || c.Ingest.Parallel.MaxWorkers > 10 {
		return ErrInvalidMaxWorkers
	}

	if c.Ingest.Parallel.ChunkSize < 1 {
		return ErrInvalidChunkSize
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// APIKey resolves the upstream API key from the environment.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", ErrMissingAPIKey
	}

	return key, nil
}

// RateFor returns the effective requests-per-second for a family,
// honoring per-family overrides.
func (c *Config) RateFor(family models.Family) float64 {
	if rps, ok := c.API.EndpointRateLimits[string(family)]; ok {
		return rps
	}

	return c.API.RateLimit.RequestsPerSecond
}

// TimeoutFor returns the (connect, read) pair for a family, falling
// back to a conservative default.
func (c *Config) TimeoutFor(family models.Family) TimeoutConfig {
	if tc, ok := c.API.TimeoutConfig[string(family)]; ok {
		return tc
	}

	return TimeoutConfig{ConnectSec: 10, ReadSec: 30}
}

// MaxRetries returns the per-page retry budget. An explicit 0 means
// never retry; only an absent key falls back to the default.
func (c *Config) MaxRetries() int {
	if c.API.RateLimit.MaxRetries == nil {
		return DefaultMaxRetries
	}

	return *c.API.RateLimit.MaxRetries
}

// RetryDelay returns the base backoff as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.API.RateLimit.RetryDelaySec * float64(time.Second))
}

// MinDate returns the configured lower bound on requested dates.
// Validate guarantees the value parses.
func (c *Config) MinDate() time.Time {
	minDate, err := dates.Parse(c.Ingest.DateRanges.MinDate)
	if err != nil {
		return models.MinRecordDate
	}

	return minDate
}

// String returns a short description of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{BaseURL: %s, Table: %s, Workers: %d, Batch: %d}",
		c.API.BaseURL,
		c.Store.TableName,
		c.Ingest.Parallel.MaxWorkers,
		c.Ingest.BatchSize,
	)
}
