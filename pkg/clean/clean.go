// Package clean reconciles raw extracted observations into exactly
// one row per (neighborhood, period, sub-dimension) key.
//
// Two steps run in order: census-section rows are aggregated up to
// neighborhood grain, then duplicates across sources are resolved by
// a deterministic precedence rule. The output order and content
// depend only on the input multiset, never on input order or map
// traversal order.
package clean

import (
	"sort"

	"github.com/barriodata/bcndb/pkg/extract"
)

// Stats summarizes what the cleaner did.
type Stats struct {
	Input              int
	Output             int
	SectionsAggregated int
	DuplicatesResolved int
}

type key struct {
	neighborhoodID int
	periodKey      string
	dims           string
}

func keyOf(r extract.Record) key {
	return key{r.NeighborhoodID, r.PeriodKey, r.DimsKey()}
}

// Clean aggregates section-level rows and deduplicates the result.
// secondaryNames lists the secondary attributes relevant for the
// fact table; records missing fewer of them win ties during
// deduplication.
func Clean(
	recs []extract.Record,
	secondaryNames []string,
) ([]extract.Record, Stats) {
	stats := Stats{Input: len(recs)}

	recs, stats.SectionsAggregated = aggregateSections(recs)
	out, resolved := deduplicate(recs, secondaryNames)
	stats.DuplicatesResolved = resolved
	stats.Output = len(out)

	sort.Slice(out, func(i, j int) bool {
		a, b := keyOf(out[i]), keyOf(out[j])
		if a.neighborhoodID != b.neighborhoodID {
			return a.neighborhoodID < b.neighborhoodID
		}
		if a.periodKey != b.periodKey {
			return a.periodKey < b.periodKey
		}
		return a.dims < b.dims
	})
	return out, stats
}

type sectionKey struct {
	key
	sourceTag string
}

// aggregateSections rolls census-section rows up to neighborhood
// grain. The roll-up is a population-weighted mean when every row of
// a group carries a weight, a simple mean otherwise; the method used
// is recorded on the output record.
func aggregateSections(
	recs []extract.Record,
) ([]extract.Record, int) {
	var out []extract.Record
	groups := make(map[sectionKey][]extract.Record)
	var order []sectionKey

	for _, r := range recs {
		if !r.SectionLevel {
			out = append(out, r)
			continue
		}
		k := sectionKey{keyOf(r), r.SourceTag}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.key != b.key {
			if a.neighborhoodID != b.neighborhoodID {
				return a.neighborhoodID < b.neighborhoodID
			}
			if a.periodKey != b.periodKey {
				return a.periodKey < b.periodKey
			}
			return a.dims < b.dims
		}
		return a.sourceTag < b.sourceTag
	})

	var aggregated int
	for _, k := range order {
		group := groups[k]
		out = append(out, rollUp(group))
		aggregated += len(group)
	}
	return out, aggregated
}

func rollUp(group []extract.Record) extract.Record {
	weighted := true
	for _, r := range group {
		if r.Weight <= 0 {
			weighted = false
			break
		}
	}

	var sum, wsum float64
	latest := group[0].ExtractedAt
	for _, r := range group {
		if weighted {
			sum += r.Value * r.Weight
			wsum += r.Weight
		} else {
			sum += r.Value
		}
		if r.ExtractedAt.After(latest) {
			latest = r.ExtractedAt
		}
	}

	res := group[0]
	res.SectionLevel = false
	res.ExtractedAt = latest
	if weighted {
		res.Value = sum / wsum
		res.Weight = wsum
		res.Aggregation = "weighted_mean"
	} else {
		res.Value = sum / float64(len(group))
		res.Weight = 0
		res.Aggregation = "mean"
	}
	return res
}

// deduplicate resolves duplicate observations for the same key.
// Precedence: (1) higher source priority, (2) fewer missing secondary
// attributes, (3) later extraction timestamp, (4) lexicographically
// larger source tag as a final total-order tiebreak.
func deduplicate(
	recs []extract.Record,
	secondaryNames []string,
) ([]extract.Record, int) {
	winners := make(map[key]extract.Record, len(recs))
	var resolved int

	for _, r := range recs {
		if r.Aggregation == "" {
			r.Aggregation = "direct"
		}
		k := keyOf(r)
		cur, ok := winners[k]
		if !ok {
			winners[k] = r
			continue
		}
		resolved++
		if wins(r, cur, secondaryNames) {
			winners[k] = r
		}
	}

	out := make([]extract.Record, 0, len(winners))
	for _, r := range winners {
		out = append(out, r)
	}
	return out, resolved
}

func wins(a, b extract.Record, secondaryNames []string) bool {
	if a.SourcePriority != b.SourcePriority {
		return a.SourcePriority > b.SourcePriority
	}
	am, bm := a.MissingSecondary(secondaryNames), b.MissingSecondary(secondaryNames)
	if am != bm {
		return am < bm
	}
	if !a.ExtractedAt.Equal(b.ExtractedAt) {
		return a.ExtractedAt.After(b.ExtractedAt)
	}
	return a.SourceTag > b.SourceTag
}
