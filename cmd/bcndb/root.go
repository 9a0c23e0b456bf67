package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/barriodata/bcndb/internal/iofs"
	"github.com/barriodata/bcndb/internal/iologger"
	app "github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg *config.Config

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bcndb",
		Short: "bcndb manages the Barcelona neighborhood warehouse",
		Long: `bcndb is a CLI tool for managing the lifecycle of the Barcelona
neighborhood data warehouse: a small PostgreSQL star schema holding
housing prices, income and demographics for the city's 73
neighborhoods.

The tool provides five main phases:
  - create:  create the warehouse schema and seed the dimensions
  - enrich:  fill missing neighborhood attributes (INE codes, geometry)
  - extract: fetch raw data from the configured sources
  - run:     execute the full extract/clean/validate/load pipeline
  - status:  show extraction history and recent runs

Configuration precedence (highest to lowest):
  1. CLI flags (--years, --sources, etc.)
  2. Environment variables (BCNDB_*)
  3. Config file (~/.config/bcndb/config.yaml)
  4. Built-in defaults

Environment variables use underscores for nesting
(database.host becomes BCNDB_DATABASE_HOST).`,
		Version: fmt.Sprintf("version: %s\nbuild:   %s",
			app.Version, app.Build),
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "V", false, "version for bcndb")

	rootCmd.AddCommand(getCreateCmd())
	rootCmd.AddCommand(getMigrateCmd())
	rootCmd.AddCommand(getEnrichCmd())
	rootCmd.AddCommand(getExtractCmd())
	rootCmd.AddCommand(getRunCmd())
	rootCmd.AddCommand(getStatusCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		return err
	}

	// logging with hardcoded defaults until the user's config is
	// loaded
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		return err
	}
	if err = iofs.EnsureSourcesFile(homeDir); err != nil {
		return err
	}

	fileCfg, err := initConfig(homeDir)
	if err != nil {
		return err
	}

	cfg = config.New()
	cfg.Update(fileCfg.ToOptions())
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// reconfigure logging with the user's settings
	if err = iologger.Init(
		config.LogDir(homeDir), cfg.Log, true); err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"config_file", config.ConfigFilePath(homeDir))
	return nil
}

func initConfig(home string) (*config.Config, error) {
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err := v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}
	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Bound manually so the allowed env variables are explicit. These
	// match the fields in config.ToOptions(), the persistent part of
	// the configuration.
	v.SetEnvPrefix("BCNDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.database", "DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	v.BindEnv("database.batch_size", "DATABASE_BATCH_SIZE")

	v.BindEnv("extract.rate_delay_ms", "EXTRACT_RATE_DELAY_MS")
	v.BindEnv("extract.http_timeout_sec", "EXTRACT_HTTP_TIMEOUT_SEC")
	v.BindEnv("extract.max_retries", "EXTRACT_MAX_RETRIES")

	v.BindEnv("pipeline.fk_ceiling", "PIPELINE_FK_CEILING")
	v.BindEnv("pipeline.completeness_target", "PIPELINE_COMPLETENESS_TARGET")
	v.BindEnv("pipeline.validity_target", "PIPELINE_VALIDITY_TARGET")

	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
	v.BindEnv("log.destination", "LOG_DESTINATION")

	v.BindEnv("jobs_number", "JOBS_NUMBER")

	v.AutomaticEnv()
}
