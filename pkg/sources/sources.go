// Package sources provides configuration and validation for the
// extraction sources and fact tables.
//
// This package defines the schema for sources.yaml, which lists the
// configured source extractors (one per external dataset), their
// ordered fallback strategy chains, and the per-fact-table validation
// thresholds.
package sources

import "github.com/barriodata/bcndb/pkg/validate"

// Loader reads and validates sources.yaml.
type Loader interface {
	Load() (*SourcesConfig, error)
}

// SourcesConfig represents the complete sources.yaml configuration
// file.
type SourcesConfig struct {
	// Sources is the list of configured source extractors.
	Sources []SourceConfig `yaml:"sources"`

	// Tables holds per-fact-table validation thresholds. Tables
	// absent here use pipeline defaults.
	Tables []TableConfig `yaml:"tables"`

	// Warnings holds non-fatal validation warnings (not serialized).
	Warnings []ValidationWarning `yaml:"-"`
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Source     string // name of the source
	Field      string // field name that has the issue
	Message    string // description of the issue
	Suggestion string // how to fix it
}

// SourceConfig represents configuration for a single source
// extractor.
type SourceConfig struct {
	// Name identifies the source in manifests, logs and the
	// --sources flag.
	Name string `yaml:"name"`

	// Table is the target fact table: demographics,
	// demographics_extended, housing_prices or income.
	Table string `yaml:"table"`

	// Priority is the deduplication precedence; when two sources
	// produce a record for the same key, the higher priority wins.
	// Neighborhood-grain sources should outrank section-grain ones.
	Priority int `yaml:"priority"`

	// SectionLevel marks sources reporting at census-section grain;
	// their rows are aggregated up to neighborhood grain by the
	// cleaner.
	SectionLevel bool `yaml:"section_level,omitempty"`

	// Granularity is the period grain of the source: "year" or
	// "quarter". Defaults to "year".
	Granularity string `yaml:"granularity,omitempty"`

	// RateDelayMs overrides the default minimum delay between HTTP
	// calls for this source. Each source has its own rate budget.
	RateDelayMs int `yaml:"rate_delay_ms,omitempty"`

	// Dims lists the sub-dimension fields the source reports
	// (e.g. sex, age_group for the population register).
	Dims []string `yaml:"dims,omitempty"`

	// ConstDims holds sub-dimension values fixed by the source itself
	// rather than read from a payload column (e.g. tenure: sale for
	// the sale-price dataset, category: nationality for the
	// nationality register).
	ConstDims map[string]string `yaml:"const_dims,omitempty"`

	// Secondary lists the secondary measures the source may report
	// (e.g. transaction_count). Used by the deduplication tiebreak.
	Secondary []string `yaml:"secondary,omitempty"`

	// Strategies is the ordered fallback chain, most preferred first.
	Strategies []StrategyConfig `yaml:"strategies"`
}

// StrategyConfig describes one retrieval method in a fallback chain.
type StrategyConfig struct {
	// Kind selects the strategy implementation:
	//   opendata  - CKAN datastore_search JSON API
	//   aggregate - aggregated statistics JSON API
	//   csv       - direct CSV resource download
	Kind string `yaml:"kind"`

	// URL is the endpoint base URL.
	URL string `yaml:"url"`

	// ResourceID selects a CKAN resource (opendata kind only).
	ResourceID string `yaml:"resource_id,omitempty"`

	// FieldMap maps source column names to the normalized vocabulary:
	// neighborhood_id, neighborhood_name, year, quarter, value,
	// weight, plus any name in Dims or Secondary. Columns mapped to
	// Dims or Secondary are optional - their absence in a payload is
	// tolerated. The value column is required.
	FieldMap map[string]string `yaml:"field_map,omitempty"`
}

// TableConfig holds validation thresholds for one fact table.
type TableConfig struct {
	Name string `yaml:"name"`

	// Thresholds missing from the file (zero values) fall back to
	// pipeline defaults at run time.
	FKCeiling          float64 `yaml:"fk_ceiling,omitempty"`
	CompletenessTarget float64 `yaml:"completeness_target,omitempty"`
	ValidityTarget     float64 `yaml:"validity_target,omitempty"`

	// ValueMin and ValueMax bound plausible primary measure values
	// for the validity check. ValueMax zero means unbounded above.
	ValueMin float64 `yaml:"value_min,omitempty"`
	ValueMax float64 `yaml:"value_max,omitempty"`
}

// Thresholds resolves the table's validation thresholds, filling
// unset values from pipeline defaults.
func (tc TableConfig) Thresholds(
	defFKCeiling, defCompleteness, defValidity float64,
) validate.Thresholds {
	th := validate.Thresholds{
		FKCeiling:          tc.FKCeiling,
		CompletenessTarget: tc.CompletenessTarget,
		ValidityTarget:     tc.ValidityTarget,
		ValueMin:           tc.ValueMin,
		ValueMax:           tc.ValueMax,
	}
	if th.FKCeiling == 0 {
		th.FKCeiling = defFKCeiling
	}
	if th.CompletenessTarget == 0 {
		th.CompletenessTarget = defCompleteness
	}
	if th.ValidityTarget == 0 {
		th.ValidityTarget = defValidity
	}
	return th
}

// TableFor returns the threshold config for a fact table, or a zero
// TableConfig when the table is not listed.
func (sc *SourcesConfig) TableFor(name string) TableConfig {
	for _, tc := range sc.Tables {
		if tc.Name == name {
			return tc
		}
	}
	return TableConfig{Name: name}
}

// SourcesFor returns the sources feeding one fact table, in file
// order.
func (sc *SourcesConfig) SourcesFor(table string) []SourceConfig {
	var res []SourceConfig
	for _, s := range sc.Sources {
		if s.Table == table {
			res = append(res, s)
		}
	}
	return res
}
