// Package extract defines the shared contract for source extractors:
// normalized records, extraction parameters, the strategy error
// taxonomy and the ordered fallback driver.
//
// The package is pure - all network and file system work lives in
// internal/ioextract. Extractors differ only in configuration and in
// how their strategies parse source payloads; everything downstream
// (cleaner, validators, loader) consumes the one Record shape defined
// here.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Params constrains one extraction request.
type Params struct {
	// Source is the configured source name (e.g. "income_rfd").
	Source string

	// YearFrom and YearTo bound the requested periods, inclusive.
	YearFrom int
	YearTo   int

	// Filters holds source-specific request filters.
	Filters map[string]string
}

// Hash returns a stable fingerprint of the parameters, used by the
// manifest to recognize re-runs with identical parameters.
func (p Params) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d", p.Source, p.YearFrom, p.YearTo)
	for _, k := range slices.Sorted(maps.Keys(p.Filters)) {
		fmt.Fprintf(&b, "|%s=%s", k, p.Filters[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// Record is one normalized observation. Every source parser maps its
// own columns into this shape; missing optional columns leave the
// corresponding fields empty rather than failing the extraction.
type Record struct {
	// NeighborhoodID is the municipal neighborhood code (1-73).
	// Zero when the source row could not be resolved to a code; such
	// rows are excluded later by the foreign-key validator.
	NeighborhoodID int

	// NeighborhoodName is the source's spelling of the neighborhood,
	// kept for diagnostics.
	NeighborhoodName string

	// PeriodKey is the normalized period ("2021" or "2021-Q3").
	PeriodKey string

	// Dims holds sub-dimension values (sex, age_group, nationality,
	// tenure, ...). Keys come from the source configuration.
	Dims map[string]string

	// Value is the primary measure.
	Value float64

	// Secondary holds optional secondary measures (transaction_count,
	// income_per_capita, ...).
	Secondary map[string]float64

	// Weight is the aggregation weight (usually population) for
	// section-level rows; zero when the source reports none.
	Weight float64

	// SourceTag names the source the record came from.
	SourceTag string

	// SourcePriority is the configured deduplication precedence of
	// the source. Higher wins.
	SourcePriority int

	// SectionLevel is true when the row is at census-section grain
	// and must be aggregated up to neighborhood grain.
	SectionLevel bool

	// Aggregation records the roll-up method applied by the cleaner:
	// "direct", "mean" or "weighted_mean".
	Aggregation string

	// ExtractedAt is the manifest timestamp of the extraction attempt
	// that produced the record.
	ExtractedAt time.Time
}

// MissingSecondary counts how many of the given secondary attribute
// names are absent from the record. Used as the second deduplication
// criterion.
func (r Record) MissingSecondary(names []string) int {
	var n int
	for _, name := range names {
		if _, ok := r.Secondary[name]; !ok {
			n++
		}
	}
	return n
}

// DimsKey returns a canonical fingerprint of the sub-dimension
// values, usable as part of a composite map key.
func (r Record) DimsKey() string {
	if len(r.Dims) == 0 {
		return ""
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(r.Dims)) {
		parts = append(parts, k+"="+r.Dims[k])
	}
	return strings.Join(parts, ";")
}

// Attempt describes the outcome of one strategy attempt.
type Attempt struct {
	Strategy string
	Kind     ErrorKind
	Reason   string
}

// Meta describes how an extraction succeeded.
type Meta struct {
	// StrategyUsed is the name of the strategy that produced the
	// records.
	StrategyUsed string

	// FromCache is true when the result was replayed from a persisted
	// raw file instead of the network.
	FromCache bool

	// Attempts lists every strategy attempt in order, including the
	// failed ones that preceded success.
	Attempts []Attempt
}

// Result is a successful extraction: normalized records plus metadata
// about which fallback strategy produced them.
type Result struct {
	Records []Record
	Meta    Meta
}
