// Package validate implements the two warehouse gatekeepers: the
// foreign-key validator (hard, blocks commit) and the data-quality
// validator (soft, only degrades a run). The distinction matters:
// referential violations exclude rows and can abort a table, quality
// shortfalls never block a commit.
package validate

import (
	"math"

	"github.com/barriodata/bcndb/pkg/extract"
)

// RefSets holds the dimension keys fact rows must resolve to.
// Fetched once per run from the warehouse.
type RefSets struct {
	Neighborhoods map[int]struct{}
	Periods       map[string]struct{}
}

// Thresholds configures validation for one fact table. Zero values
// fall back to pipeline defaults before use.
type Thresholds struct {
	// FKCeiling is the maximum tolerated excluded-row ratio. A ratio
	// exactly at the ceiling still commits; one above it aborts the
	// table.
	FKCeiling float64

	// CompletenessTarget and ValidityTarget mark a table "degraded"
	// (not aborted) when undershot.
	CompletenessTarget float64
	ValidityTarget     float64

	// ValueMin and ValueMax bound plausible primary measure values.
	// ValueMax of zero means unbounded above.
	ValueMin float64
	ValueMax float64
}

// FKReport summarizes foreign-key validation of one fact table batch.
type FKReport struct {
	Total    int
	Excluded int
	Ratio    float64

	// Fatal is true when Ratio exceeds the configured ceiling; the
	// table must then be aborted with nothing committed.
	Fatal bool
}

// ForeignKeys excludes every record whose neighborhood or period key
// does not resolve to an existing dimension row. Exclusions are
// counted, never silent. The returned records all satisfy referential
// integrity by construction.
func ForeignKeys(
	recs []extract.Record,
	refs RefSets,
	ceiling float64,
) ([]extract.Record, FKReport) {
	rep := FKReport{Total: len(recs)}
	kept := make([]extract.Record, 0, len(recs))

	for _, r := range recs {
		if _, ok := refs.Neighborhoods[r.NeighborhoodID]; !ok {
			rep.Excluded++
			continue
		}
		if _, ok := refs.Periods[r.PeriodKey]; !ok {
			rep.Excluded++
			continue
		}
		kept = append(kept, r)
	}

	if rep.Total > 0 {
		rep.Ratio = float64(rep.Excluded) / float64(rep.Total)
	}
	rep.Fatal = rep.Ratio > ceiling
	return kept, rep
}

// QualityReport summarizes the data-quality check of one fact table
// batch.
type QualityReport struct {
	// Completeness is the fraction of expected (neighborhood x
	// period) cells for which at least one record is present.
	Completeness  float64
	PresentCells  int
	ExpectedCells int

	// Validity is the fraction of present values passing type and
	// range checks.
	Validity      float64
	InvalidValues int

	// Degraded is true when either ratio undershoots its target.
	// Degraded tables still commit.
	Degraded bool
}

// Quality computes completeness and validity for a validated batch.
// expectedNeighborhoods and expectedPeriods define the cell grid the
// table should cover for the requested range.
func Quality(
	recs []extract.Record,
	expectedNeighborhoods int,
	expectedPeriods []string,
	th Thresholds,
) QualityReport {
	rep := QualityReport{
		ExpectedCells: expectedNeighborhoods * len(expectedPeriods),
	}

	expected := make(map[string]struct{}, len(expectedPeriods))
	for _, p := range expectedPeriods {
		expected[p] = struct{}{}
	}

	type cell struct {
		n int
		p string
	}
	present := make(map[cell]struct{})
	for _, r := range recs {
		if _, ok := expected[r.PeriodKey]; ok {
			present[cell{r.NeighborhoodID, r.PeriodKey}] = struct{}{}
		}
		if !validValue(r.Value, th) {
			rep.InvalidValues++
		}
	}
	rep.PresentCells = len(present)

	if rep.ExpectedCells > 0 {
		rep.Completeness = float64(rep.PresentCells) / float64(rep.ExpectedCells)
	}
	rep.Validity = 1.0
	if len(recs) > 0 {
		rep.Validity = 1.0 - float64(rep.InvalidValues)/float64(len(recs))
	}

	rep.Degraded = rep.Completeness < th.CompletenessTarget ||
		rep.Validity < th.ValidityTarget
	return rep
}

func validValue(v float64, th Thresholds) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if v < th.ValueMin {
		return false
	}
	if th.ValueMax > 0 && v > th.ValueMax {
		return false
	}
	return true
}
