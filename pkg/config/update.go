package config

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir, year range, source subset,
// Refresh, DryRun). Used for round-tripping config.yaml <-> Config.
func (c *Config) ToOptions() []Option {
	var res []Option
	var s string
	var i int
	s = c.Database.Host
	if s != "" {
		res = append(res, OptDatabaseHost(s))
	}
	i = c.Database.Port
	if i > 0 {
		res = append(res, OptDatabasePort(i))
	}
	s = c.Database.User
	if s != "" {
		res = append(res, OptDatabaseUser(s))
	}
	s = c.Database.Password
	if s != "" {
		res = append(res, OptDatabasePassword(s))
	}
	s = c.Database.Database
	if s != "" {
		res = append(res, OptDatabaseDatabase(s))
	}
	s = c.Database.SSLMode
	if s != "" {
		res = append(res, OptDatabaseSSLMode(s))
	}
	i = c.Database.BatchSize
	if i > 0 {
		res = append(res, OptDatabaseBatchSize(i))
	}

	i = c.Extract.RateDelayMs
	if i > 0 {
		res = append(res, OptExtractRateDelayMs(i))
	}
	i = c.Extract.HTTPTimeoutSec
	if i > 0 {
		res = append(res, OptExtractHTTPTimeoutSec(i))
	}
	i = c.Extract.MaxRetries
	if i > 0 {
		res = append(res, OptExtractMaxRetries(i))
	}

	if c.Pipeline.FKCeiling > 0 {
		res = append(res, OptPipelineFKCeiling(c.Pipeline.FKCeiling))
	}
	if c.Pipeline.CompletenessTarget > 0 {
		res = append(res,
			OptPipelineCompletenessTarget(c.Pipeline.CompletenessTarget))
	}
	if c.Pipeline.ValidityTarget > 0 {
		res = append(res,
			OptPipelineValidityTarget(c.Pipeline.ValidityTarget))
	}

	s = c.Log.Format
	if s != "" {
		res = append(res, OptLogFormat(s))
	}
	s = c.Log.Level
	if s != "" {
		res = append(res, OptLogLevel(s))
	}
	s = c.Log.Destination
	if s != "" {
		res = append(res, OptLogDestination(s))
	}

	i = c.JobsNumber
	if i > 0 {
		res = append(res, OptJobsNumber(i))
	}
	return res
}

func warn(name, format string, args ...any) {
	slog.Warn(fmt.Sprintf("%s: %s", name, fmt.Sprintf(format, args...)))
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		warn(name, "cannot be empty, ignoring")
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		warn(name, "has to be positive number, ignoring %d", i)
	}
	return res
}

func isValidRatio(name string, f float64) bool {
	res := f >= 0 && f <= 1
	if !res {
		warn(name, "has to be between 0 and 1, ignoring %v", f)
	}
	return res
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Database.SSLMode": {"disable": s, "require": s,
			"verify-ca": s, "verify-full": s},
		"Log.Level":       {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":      {"json": s, "text": s, "tint": s},
		"Log.Destination": {"file": s, "stderr": s, "stdout": s},
	}
	if _, ok := data[name][val]; ok {
		return true
	}
	vals := slices.Sorted(maps.Keys(data[name]))
	warn(name, "does not support '%s' as a value. Valid values are: %s. Ignoring",
		val, strings.Join(vals, ", "))
	return false
}
