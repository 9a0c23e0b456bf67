package config_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/barriodata/bcndb/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirs(t *testing.T) {
	tempHome := t.TempDir()

	tests := []struct {
		msg string
		fn  func(string) string
		res string
	}{
		{
			msg: "config dir",
			fn:  config.ConfigDir,
			res: filepath.Join(tempHome, ".config", "bcndb"),
		},
		{
			msg: "cache dir",
			fn:  config.CacheDir,
			res: filepath.Join(tempHome, ".cache", "bcndb"),
		},
		{
			msg: "raw dir",
			fn:  config.RawDir,
			res: filepath.Join(tempHome, ".cache", "bcndb", "raw"),
		},
		{
			msg: "manifest path",
			fn:  config.ManifestPath,
			res: filepath.Join(tempHome, ".cache", "bcndb", "manifest.sqlite"),
		},
		{
			msg: "log dir",
			fn:  config.LogDir,
			res: filepath.Join(tempHome, ".local", "share", "bcndb", "logs"),
		},
	}

	for _, v := range tests {
		res := v.fn(tempHome)
		assert.Equal(t, v.res, res, v.msg)
	}
}

func TestNew(t *testing.T) {
	cfg := config.New()
	require.NotNil(t, cfg)

	// Database defaults
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "bcndb", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 5_000, cfg.Database.BatchSize)

	// Extract defaults
	assert.Equal(t, 2015, cfg.Extract.YearFrom)
	assert.Equal(t, 2025, cfg.Extract.YearTo)
	assert.Equal(t, 500, cfg.Extract.RateDelayMs)
	assert.Equal(t, 30, cfg.Extract.HTTPTimeoutSec)
	assert.Equal(t, 3, cfg.Extract.MaxRetries)
	assert.Empty(t, cfg.Extract.SourceNames)
	assert.False(t, cfg.Extract.Refresh)

	// Pipeline thresholds
	assert.InDelta(t, 0.02, cfg.Pipeline.FKCeiling, 1e-9)
	assert.InDelta(t, 0.90, cfg.Pipeline.CompletenessTarget, 1e-9)
	assert.InDelta(t, 0.98, cfg.Pipeline.ValidityTarget, 1e-9)

	// Log defaults
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "file", cfg.Log.Destination)

	// JobsNumber defaults to CPU count
	assert.Equal(t, runtime.NumCPU(), cfg.JobsNumber)
}

func TestOptionsValid(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptDatabaseHost("warehouse.local"),
		config.OptDatabasePort(5433),
		config.OptDatabaseDatabase("bcn"),
		config.OptDatabaseSSLMode("require"),
		config.OptDatabaseBatchSize(1000),
		config.OptExtractYears(2018, 2020),
		config.OptExtractSourceNames([]string{"income_rfd"}),
		config.OptExtractRefresh(true),
		config.OptExtractRateDelayMs(250),
		config.OptExtractHTTPTimeoutSec(10),
		config.OptExtractMaxRetries(2),
		config.OptPipelineFKCeiling(0.05),
		config.OptPipelineCompletenessTarget(0.8),
		config.OptPipelineValidityTarget(0.95),
		config.OptPipelineDryRun(true),
		config.OptLogLevel("debug"),
		config.OptLogFormat("tint"),
		config.OptLogDestination("stdout"),
		config.OptJobsNumber(2),
		config.OptHomeDir("/tmp/home"),
	})

	assert.Equal(t, "warehouse.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "bcn", cfg.Database.Database)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 1000, cfg.Database.BatchSize)
	assert.Equal(t, 2018, cfg.Extract.YearFrom)
	assert.Equal(t, 2020, cfg.Extract.YearTo)
	assert.Equal(t, []string{"income_rfd"}, cfg.Extract.SourceNames)
	assert.True(t, cfg.Extract.Refresh)
	assert.Equal(t, 250, cfg.Extract.RateDelayMs)
	assert.Equal(t, 10, cfg.Extract.HTTPTimeoutSec)
	assert.Equal(t, 2, cfg.Extract.MaxRetries)
	assert.InDelta(t, 0.05, cfg.Pipeline.FKCeiling, 1e-9)
	assert.InDelta(t, 0.8, cfg.Pipeline.CompletenessTarget, 1e-9)
	assert.InDelta(t, 0.95, cfg.Pipeline.ValidityTarget, 1e-9)
	assert.True(t, cfg.Pipeline.DryRun)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "tint", cfg.Log.Format)
	assert.Equal(t, "stdout", cfg.Log.Destination)
	assert.Equal(t, 2, cfg.JobsNumber)
	assert.Equal(t, "/tmp/home", cfg.HomeDir)
}

func TestOptionsInvalidKeepConfigValid(t *testing.T) {
	cfg := config.New()
	def := config.New()

	cfg.Update([]config.Option{
		config.OptDatabaseHost(""),
		config.OptDatabasePort(0),
		config.OptDatabaseSSLMode("maybe"),
		config.OptExtractYears(2022, 2019),
		config.OptPipelineFKCeiling(1.5),
		config.OptPipelineValidityTarget(-0.1),
		config.OptLogLevel("loud"),
		config.OptLogFormat("xml"),
		config.OptLogDestination("syslog"),
		config.OptJobsNumber(-1),
	})

	assert.Equal(t, def.Database.Host, cfg.Database.Host)
	assert.Equal(t, def.Database.Port, cfg.Database.Port)
	assert.Equal(t, def.Database.SSLMode, cfg.Database.SSLMode)
	assert.Equal(t, def.Extract.YearFrom, cfg.Extract.YearFrom)
	assert.Equal(t, def.Extract.YearTo, cfg.Extract.YearTo)
	assert.InDelta(t, def.Pipeline.FKCeiling, cfg.Pipeline.FKCeiling, 1e-9)
	assert.InDelta(t, def.Pipeline.ValidityTarget, cfg.Pipeline.ValidityTarget, 1e-9)
	assert.Equal(t, def.Log.Level, cfg.Log.Level)
	assert.Equal(t, def.Log.Format, cfg.Log.Format)
	assert.Equal(t, def.Log.Destination, cfg.Log.Destination)
	assert.Equal(t, def.JobsNumber, cfg.JobsNumber)
}

func TestToOptionsRoundTrip(t *testing.T) {
	src := config.New()
	src.Update([]config.Option{
		config.OptDatabaseHost("db.example.org"),
		config.OptDatabaseBatchSize(123),
		config.OptPipelineFKCeiling(0.01),
		config.OptLogFormat("text"),
		config.OptJobsNumber(3),
		// runtime-only fields must not survive the round trip
		config.OptHomeDir("/tmp/x"),
		config.OptExtractSourceNames([]string{"sale_price"}),
	})

	dst := config.New()
	dst.Update(src.ToOptions())

	assert.Equal(t, "db.example.org", dst.Database.Host)
	assert.Equal(t, 123, dst.Database.BatchSize)
	assert.InDelta(t, 0.01, dst.Pipeline.FKCeiling, 1e-9)
	assert.Equal(t, "text", dst.Log.Format)
	assert.Equal(t, 3, dst.JobsNumber)
	assert.Empty(t, dst.HomeDir)
	assert.Empty(t, dst.Extract.SourceNames)
}
