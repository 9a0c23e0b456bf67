package sources

import (
	"fmt"
	"net/url"
	"strings"
)

var validKinds = map[string]bool{
	"opendata":  true,
	"aggregate": true,
	"csv":       true,
}

var validTables = map[string]bool{
	"demographics":          true,
	"demographics_extended": true,
	"housing_prices":        true,
	"income":                true,
}

// Validate checks the structural consistency of the configuration.
// Fatal problems return an error; recoverable ones are collected as
// Warnings for the caller to log.
func (sc *SourcesConfig) Validate() error {
	if len(sc.Sources) == 0 {
		return fmt.Errorf("sources.yaml contains no sources")
	}

	seen := make(map[string]bool)
	for i, src := range sc.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("source %d: name is required", i+1)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		if !validTables[src.Table] {
			return fmt.Errorf("source %q: unknown fact table %q",
				src.Name, src.Table)
		}
		if src.Priority <= 0 {
			return fmt.Errorf("source %q: priority must be positive",
				src.Name)
		}
		if len(src.Strategies) == 0 {
			return fmt.Errorf("source %q: at least one strategy required",
				src.Name)
		}
		if src.Granularity != "" &&
			src.Granularity != "year" && src.Granularity != "quarter" {
			return fmt.Errorf("source %q: granularity must be year or quarter",
				src.Name)
		}

		for j, st := range src.Strategies {
			if !validKinds[st.Kind] {
				return fmt.Errorf("source %q strategy %d: unknown kind %q",
					src.Name, j+1, st.Kind)
			}
			if !IsValidURL(st.URL) {
				return fmt.Errorf("source %q strategy %d: invalid url %q",
					src.Name, j+1, st.URL)
			}
			if st.Kind == "opendata" && st.ResourceID == "" {
				sc.Warnings = append(sc.Warnings, ValidationWarning{
					Source:     src.Name,
					Field:      "resource_id",
					Message:    "opendata strategy without resource_id",
					Suggestion: "set the CKAN resource id to avoid a catalog lookup per run",
				})
			}
			if len(st.FieldMap) == 0 {
				sc.Warnings = append(sc.Warnings, ValidationWarning{
					Source:     src.Name,
					Field:      "field_map",
					Message:    "strategy without field_map relies on default column names",
					Suggestion: "map source columns explicitly to survive schema drift",
				})
			}
		}
	}

	for _, tc := range sc.Tables {
		if !validTables[tc.Name] {
			return fmt.Errorf("tables: unknown fact table %q", tc.Name)
		}
		for _, v := range []float64{
			tc.FKCeiling, tc.CompletenessTarget, tc.ValidityTarget,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("table %q: thresholds must be ratios in [0,1]",
					tc.Name)
			}
		}
	}

	return nil
}

// IsValidURL reports whether s parses as an absolute http(s) URL.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
