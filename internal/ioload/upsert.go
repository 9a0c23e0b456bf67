package ioload

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/barriodata/bcndb/pkg/extract"
)

// tableSpec describes how normalized records map onto one fact
// table: column list, the natural key for conflict resolution, and
// the row builder.
type tableSpec struct {
	columns []string
	keys    []string
	row     func(r extract.Record, now time.Time) []any
}

var tableSpecs = map[string]tableSpec{
	"demographics": {
		columns: []string{
			"neighborhood_id", "period_key", "sex", "age_group",
			"population", "source_tag", "updated_at",
		},
		keys: []string{"neighborhood_id", "period_key", "sex", "age_group"},
		row: func(r extract.Record, now time.Time) []any {
			return []any{
				r.NeighborhoodID, r.PeriodKey,
				r.Dims["sex"], r.Dims["age_group"],
				int(math.Round(r.Value)), r.SourceTag, now,
			}
		},
	},
	"demographics_extended": {
		columns: []string{
			"neighborhood_id", "period_key", "category",
			"category_value", "population", "source_tag", "updated_at",
		},
		keys: []string{
			"neighborhood_id", "period_key", "category", "category_value",
		},
		row: func(r extract.Record, now time.Time) []any {
			return []any{
				r.NeighborhoodID, r.PeriodKey,
				r.Dims["category"], r.Dims["category_value"],
				int(math.Round(r.Value)), r.SourceTag, now,
			}
		},
	},
	"housing_prices": {
		columns: []string{
			"neighborhood_id", "period_key", "tenure", "price_eur_m2",
			"rent_eur_month", "transaction_count", "source_tag",
			"updated_at",
		},
		keys: []string{"neighborhood_id", "period_key", "tenure"},
		row: func(r extract.Record, now time.Time) []any {
			tenure := r.Dims["tenure"]
			var price, rent *float64
			if tenure == "rent" {
				rent = &r.Value
			} else {
				price = &r.Value
			}
			var txCount *int
			if v, ok := r.Secondary["transaction_count"]; ok {
				n := int(math.Round(v))
				txCount = &n
			}
			return []any{
				r.NeighborhoodID, r.PeriodKey, tenure,
				price, rent, txCount, r.SourceTag, now,
			}
		},
	},
	"income": {
		columns: []string{
			"neighborhood_id", "period_key", "rfd_index",
			"income_per_capita", "aggregation_method", "source_tag",
			"updated_at",
		},
		keys: []string{"neighborhood_id", "period_key"},
		row: func(r extract.Record, now time.Time) []any {
			var perCapita *float64
			if v, ok := r.Secondary["income_per_capita"]; ok {
				perCapita = &v
			}
			return []any{
				r.NeighborhoodID, r.PeriodKey, &r.Value,
				perCapita, r.Aggregation, r.SourceTag, now,
			}
		},
	},
}

// upsertBatch builds one multi-row INSERT ... ON CONFLICT DO UPDATE
// statement for a batch of records.
func upsertBatch(
	table string,
	recs []extract.Record,
	now time.Time,
) (string, []any, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return "", nil, fmt.Errorf("unknown fact table %q", table)
	}

	nCols := len(spec.columns)
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		table, strings.Join(spec.columns, ", "))

	args := make([]any, 0, len(recs)*nCols)
	for i, r := range recs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < nCols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*nCols+j+1)
		}
		sb.WriteString(")")
		args = append(args, spec.row(r, now)...)
	}

	keySet := make(map[string]bool, len(spec.keys))
	for _, k := range spec.keys {
		keySet[k] = true
	}
	var updates []string
	for _, c := range spec.columns {
		if !keySet[c] {
			updates = append(updates,
				fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}

	fmt.Fprintf(&sb, " ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(spec.keys, ", "), strings.Join(updates, ", "))

	return sb.String(), args, nil
}
