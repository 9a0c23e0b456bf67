package ioextract

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/sources"
)

// rowsToRecords maps raw source rows to normalized records using the
// strategy's field map. The mapping is drift-tolerant: rows missing
// optional columns (dims, secondary measures, weight) still produce a
// record, and rows with unparseable measures are skipped. Only the
// value column is required; when no row carries it the payload shape
// has changed and the strategy fails with a schema mismatch.
func rowsToRecords(
	src sources.SourceConfig,
	st sources.StrategyConfig,
	rows []map[string]any,
	p extract.Params,
	at time.Time,
) ([]extract.Record, error) {
	cols := normalizedColumns(st.FieldMap)
	valueCol, ok := cols["value"]
	if !ok {
		return nil, extract.NewSchemaMismatchError(st.Kind, "value")
	}

	var (
		res       []extract.Record
		valueSeen int
	)
	for _, row := range rows {
		raw, ok := row[valueCol]
		if !ok {
			continue
		}
		valueSeen++

		value, ok := parseNumber(raw)
		if !ok {
			continue
		}

		year := parseYear(lookup(row, cols, "year"))
		if year > 0 {
			if p.YearFrom > 0 && year < p.YearFrom {
				continue
			}
			if p.YearTo > 0 && year > p.YearTo {
				continue
			}
		}
		quarter := parseQuarter(lookup(row, cols, "quarter"))

		rec := extract.Record{
			NeighborhoodID:   parseInt(lookup(row, cols, "neighborhood_id")),
			NeighborhoodName: asString(lookup(row, cols, "neighborhood_name")),
			PeriodKey:        periodKey(year, quarter),
			Value:            value,
			SourceTag:        src.Name,
			SourcePriority:   src.Priority,
			SectionLevel:     src.SectionLevel,
			ExtractedAt:      at,
		}

		if w, ok := parseNumber(lookup(row, cols, "weight")); ok {
			rec.Weight = w
		}

		for _, name := range src.Secondary {
			if v, ok := parseNumber(lookup(row, cols, name)); ok {
				if rec.Secondary == nil {
					rec.Secondary = make(map[string]float64)
				}
				rec.Secondary[name] = v
			}
		}

		for _, name := range src.Dims {
			var v string
			if cv, ok := src.ConstDims[name]; ok {
				v = cv
			}
			if s := asString(lookup(row, cols, name)); s != "" {
				v = s
			}
			if v == "" {
				continue
			}
			if rec.Dims == nil {
				rec.Dims = make(map[string]string)
			}
			rec.Dims[name] = v
		}

		res = append(res, rec)
	}

	if len(rows) > 0 && valueSeen == 0 {
		return nil, extract.NewSchemaMismatchError(st.Kind, valueCol)
	}
	return res, nil
}

// parseCSV converts a CSV payload into raw rows keyed by header name,
// then maps them like any other payload.
func parseCSV(
	src sources.SourceConfig,
	st sources.StrategyConfig,
	data []byte,
	p extract.Params,
	at time.Time,
) ([]extract.Record, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, extract.NewPermanentError(st.Kind,
			fmt.Errorf("malformed csv: %w", err))
	}
	if len(all) < 2 {
		return nil, nil
	}

	header := all[0]
	rows := make([]map[string]any, 0, len(all)-1)
	for _, line := range all[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(line) {
				row[col] = line[i]
			}
		}
		rows = append(rows, row)
	}

	return rowsToRecords(src, st, rows, p, at)
}

// normalizedColumns inverts a field map into normalized-name ->
// source-column form.
func normalizedColumns(fm map[string]string) map[string]string {
	res := make(map[string]string, len(fm))
	for col, norm := range fm {
		res[norm] = col
	}
	return res
}

func lookup(row map[string]any, cols map[string]string, name string) any {
	col, ok := cols[name]
	if !ok {
		return nil
	}
	return row[col]
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// parseNumber accepts JSON numbers and numeric strings, tolerating
// the decimal comma used by some source exports.
func parseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" || s == "--" || strings.EqualFold(s, "nd") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseInt(v any) int {
	f, ok := parseNumber(v)
	if !ok {
		return 0
	}
	return int(f)
}

// parseYear extracts the year from a plain year value or an ISO date
// such as 2021-01-01.
func parseYear(v any) int {
	s := asString(v)
	if len(s) >= 4 {
		if y, err := strconv.Atoi(s[:4]); err == nil && y > 1900 {
			return y
		}
	}
	return 0
}

// parseQuarter accepts 1-4, "T3" and "Q3" spellings.
func parseQuarter(v any) int {
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return 0
	}
	s = strings.TrimLeft(strings.ToUpper(s), "TQ")
	q, err := strconv.Atoi(s)
	if err != nil || q < 1 || q > 4 {
		return 0
	}
	return q
}

// periodKey normalizes (year, quarter) into the time dimension key:
// "2021" for annual grain, "2021-Q3" for quarterly.
func periodKey(year, quarter int) string {
	if year == 0 {
		return ""
	}
	if quarter == 0 {
		return strconv.Itoa(year)
	}
	return fmt.Sprintf("%d-Q%d", year, quarter)
}
