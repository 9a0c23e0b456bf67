package config

import (
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptDatabaseHost sets the PostgreSQL server hostname or IP address.
func OptDatabaseHost(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Host", s) {
			c.Database.Host = s
		}
	}
}

// OptDatabasePort sets the PostgreSQL server port number.
func OptDatabasePort(i int) Option {
	return func(c *Config) {
		if isValidInt("Database Port", i) {
			c.Database.Port = i
		}
	}
}

// OptDatabaseUser sets the PostgreSQL database username.
func OptDatabaseUser(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database User", s) {
			c.Database.User = s
		}
	}
}

// OptDatabasePassword sets the PostgreSQL database password.
func OptDatabasePassword(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Password", s) {
			c.Database.Password = s
		}
	}
}

// OptDatabaseDatabase sets the PostgreSQL database name to connect to.
func OptDatabaseDatabase(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Database Name", s) {
			c.Database.Database = s
		}
	}
}

// OptDatabaseSSLMode sets the SSL connection mode.
// Valid values: "disable", "require", "verify-ca", "verify-full".
func OptDatabaseSSLMode(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Database.SSLMode", s) {
			c.Database.SSLMode = s
		}
	}
}

// OptDatabaseBatchSize sets the number of fact rows per upsert batch.
func OptDatabaseBatchSize(i int) Option {
	return func(c *Config) {
		if isValidInt("Batch Size", i) {
			c.Database.BatchSize = i
		}
	}
}

// OptExtractYears sets the inclusive year range for extraction.
// Runtime-only field - not in ToOptions().
func OptExtractYears(from, to int) Option {
	return func(c *Config) {
		if from > 0 && to >= from {
			c.Extract.YearFrom = from
			c.Extract.YearTo = to
			return
		}
		warn("Year Range", "%d-%d is not a valid year range, ignoring",
			from, to)
	}
}

// OptExtractSourceNames restricts the run to a subset of configured
// sources. Empty slice means run all sources from sources.yaml.
// Runtime-only field - not in ToOptions().
func OptExtractSourceNames(ss []string) Option {
	return func(c *Config) {
		if len(ss) > 0 {
			c.Extract.SourceNames = ss
		}
	}
}

// OptExtractRefresh bypasses the manifest cache for this run.
// Runtime-only field - not in ToOptions().
func OptExtractRefresh(b bool) Option {
	return func(c *Config) {
		c.Extract.Refresh = b
	}
}

// OptExtractRateDelayMs sets the default minimum delay between HTTP
// calls of a single extractor.
func OptExtractRateDelayMs(i int) Option {
	return func(c *Config) {
		if isValidInt("Rate Delay", i) {
			c.Extract.RateDelayMs = i
		}
	}
}

// OptExtractHTTPTimeoutSec bounds every individual HTTP request.
func OptExtractHTTPTimeoutSec(i int) Option {
	return func(c *Config) {
		if isValidInt("HTTP Timeout", i) {
			c.Extract.HTTPTimeoutSec = i
		}
	}
}

// OptExtractMaxRetries sets the number of retries for transient errors
// within one fallback strategy.
func OptExtractMaxRetries(i int) Option {
	return func(c *Config) {
		if isValidInt("Max Retries", i) {
			c.Extract.MaxRetries = i
		}
	}
}

// OptPipelineFKCeiling sets the default maximum tolerated ratio of
// fact rows excluded for referential violations.
func OptPipelineFKCeiling(f float64) Option {
	return func(c *Config) {
		if isValidRatio("FK Ceiling", f) {
			c.Pipeline.FKCeiling = f
		}
	}
}

// OptPipelineCompletenessTarget sets the default minimum completeness
// ratio for a table to commit without a "degraded" mark.
func OptPipelineCompletenessTarget(f float64) Option {
	return func(c *Config) {
		if isValidRatio("Completeness Target", f) {
			c.Pipeline.CompletenessTarget = f
		}
	}
}

// OptPipelineValidityTarget sets the default minimum validity ratio
// for a table to commit without a "degraded" mark.
func OptPipelineValidityTarget(f float64) Option {
	return func(c *Config) {
		if isValidRatio("Validity Target", f) {
			c.Pipeline.ValidityTarget = f
		}
	}
}

// OptPipelineDryRun skips the LOAD stage for this run.
// Runtime-only field - not in ToOptions().
func OptPipelineDryRun(b bool) Option {
	return func(c *Config) {
		c.Pipeline.DryRun = b
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stderr", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of extractors that may run
// concurrently. Default is runtime.NumCPU().
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptHomeDir sets the home directory for config, cache, and log
// locations. Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
