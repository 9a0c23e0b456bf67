// Package config provides configuration management for bcndb.
//
// This package has no I/O dependencies (no file operations, no network
// calls). Validation helpers may emit warnings via slog.
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with a warning - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Database: host, port, user, password, database, ssl_mode, batch_size
//   - Extract: rate_delay_ms, http_timeout_sec, max_retries
//   - Pipeline: fk_ceiling, completeness_target, validity_target
//   - Log: level, format, destination
//   - General: jobs_number
//
// Runtime-only fields (CLI flags only):
//   - Extract.YearFrom, Extract.YearTo, Extract.SourceNames, Extract.Refresh
//   - Pipeline.DryRun
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use BCNDB_ prefix with underscores for nesting:
//
//	BCNDB_DATABASE_HOST=localhost
//	BCNDB_DATABASE_PORT=5432
//	BCNDB_LOG_LEVEL=info
//	BCNDB_JOBS_NUMBER=4
package config

import (
	"runtime"
)

// Config represents the complete bcndb configuration.
type Config struct {
	// Database contains PostgreSQL connection settings for the warehouse.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Extract contains settings shared by all source extractors.
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`

	// Pipeline contains default validation thresholds. Per-table
	// thresholds in sources.yaml override these.
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of extractors that may run concurrently.
	// Each extractor still serializes its own HTTP calls.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// BatchSize defines the number of fact rows per upsert batch.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// ExtractConfig contains settings shared by all source extractors.
type ExtractConfig struct {
	// YearFrom and YearTo bound the requested period range, inclusive.
	// Runtime-only, set by the --years flag.
	YearFrom int `mapstructure:"year_from" yaml:"year_from"`
	YearTo   int `mapstructure:"year_to" yaml:"year_to"`

	// SourceNames restricts the run to a subset of configured sources.
	// Empty slice means run all sources from sources.yaml.
	// Runtime-only, set by the --sources flag.
	SourceNames []string `mapstructure:"source_names" yaml:"source_names"`

	// Refresh bypasses the manifest cache and re-extracts from the
	// network even when a successful entry for identical parameters
	// exists. Runtime-only.
	Refresh bool `mapstructure:"refresh" yaml:"refresh"`

	// RateDelayMs is the default minimum delay between HTTP calls of a
	// single extractor. A source may override it in sources.yaml.
	RateDelayMs int `mapstructure:"rate_delay_ms" yaml:"rate_delay_ms"`

	// HTTPTimeoutSec bounds every individual HTTP request. A request
	// that does not complete in time counts as a transient strategy
	// failure, never as a run-level fatal error.
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// MaxRetries is the number of retries for transient errors within
	// one fallback strategy before the strategy is abandoned.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// PipelineConfig contains default validation thresholds.
type PipelineConfig struct {
	// FKCeiling is the maximum tolerated ratio of fact rows excluded
	// for referential violations. A table whose excluded-row ratio
	// exceeds the ceiling is aborted; a ratio exactly at the ceiling
	// still commits.
	FKCeiling float64 `mapstructure:"fk_ceiling" yaml:"fk_ceiling"`

	// CompletenessTarget is the minimum fraction of expected
	// (neighborhood x period) cells that must be present for a table
	// to commit without a "degraded" mark.
	CompletenessTarget float64 `mapstructure:"completeness_target" yaml:"completeness_target"`

	// ValidityTarget is the minimum fraction of present values that
	// must pass type/range checks for a table to commit without a
	// "degraded" mark.
	ValidityTarget float64 `mapstructure:"validity_target" yaml:"validity_target"`

	// DryRun runs extract/clean/validate but skips LOAD.
	// Runtime-only.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      5432,
			User:      "postgres",
			Password:  "postgres",
			Database:  "bcndb",
			SSLMode:   "disable",
			BatchSize: 5_000,
		},
		Extract: ExtractConfig{
			YearFrom:       2015,
			YearTo:         2025,
			RateDelayMs:    500,
			HTTPTimeoutSec: 30,
			MaxRetries:     3,
		},
		Pipeline: PipelineConfig{
			FKCeiling:          0.02,
			CompletenessTarget: 0.90,
			ValidityTarget:     0.98,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(),
	}

	return res
}
