package ioextract

import (
	"errors"
	"testing"
	"time"

	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var incomeSrc = sources.SourceConfig{
	Name:      "income_rfd",
	Table:     "income",
	Priority:  20,
	Secondary: []string{"income_per_capita"},
}

var incomeStrategy = sources.StrategyConfig{
	Kind: "opendata",
	FieldMap: map[string]string{
		"Codi_Barri": "neighborhood_id",
		"Nom_Barri":  "neighborhood_name",
		"Any":        "year",
		"Index_RFD":  "value",
		"Renda_Cap":  "income_per_capita",
	},
}

func TestRowsToRecords(t *testing.T) {
	at := time.Now()
	rows := []map[string]any{
		{
			"Codi_Barri": "5",
			"Nom_Barri":  "el Fort Pienc",
			"Any":        "2021",
			"Index_RFD":  "103,4",
			"Renda_Cap":  15800.0,
		},
		{
			// missing secondary is tolerated
			"Codi_Barri": 12.0,
			"Any":        2021.0,
			"Index_RFD":  87.1,
		},
		{
			// unparseable value is skipped
			"Codi_Barri": "7",
			"Any":        "2021",
			"Index_RFD":  "nd",
		},
	}

	recs, err := rowsToRecords(incomeSrc, incomeStrategy, rows,
		extract.Params{Source: "income_rfd"}, at)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 5, recs[0].NeighborhoodID)
	assert.Equal(t, "el Fort Pienc", recs[0].NeighborhoodName)
	assert.Equal(t, "2021", recs[0].PeriodKey)
	assert.InDelta(t, 103.4, recs[0].Value, 1e-9)
	assert.InDelta(t, 15800.0, recs[0].Secondary["income_per_capita"], 1e-9)
	assert.Equal(t, "income_rfd", recs[0].SourceTag)
	assert.Equal(t, 20, recs[0].SourcePriority)

	assert.Equal(t, 12, recs[1].NeighborhoodID)
	assert.Empty(t, recs[1].Secondary)
}

func TestRowsToRecordsYearFilter(t *testing.T) {
	rows := []map[string]any{
		{"Codi_Barri": "1", "Any": "2019", "Index_RFD": "90"},
		{"Codi_Barri": "1", "Any": "2021", "Index_RFD": "95"},
		{"Codi_Barri": "1", "Any": "2023", "Index_RFD": "99"},
	}

	recs, err := rowsToRecords(incomeSrc, incomeStrategy, rows,
		extract.Params{YearFrom: 2020, YearTo: 2022}, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2021", recs[0].PeriodKey)
}

func TestRowsToRecordsSchemaMismatch(t *testing.T) {
	// value column vanished from the payload
	rows := []map[string]any{
		{"Codi_Barri": "1", "Any": "2021", "RFD": "95"},
	}

	_, err := rowsToRecords(incomeSrc, incomeStrategy, rows,
		extract.Params{}, time.Now())
	require.Error(t, err)
	var sErr *extract.StrategyError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, extract.Permanent, sErr.Kind)
}

func TestRowsToRecordsConstDims(t *testing.T) {
	src := sources.SourceConfig{
		Name:     "padro_nationality",
		Priority: 20,
		Dims:     []string{"category", "category_value"},
		ConstDims: map[string]string{
			"category": "nationality",
		},
	}
	st := sources.StrategyConfig{
		Kind: "opendata",
		FieldMap: map[string]string{
			"Codi_Barri":         "neighborhood_id",
			"Data_Referencia":    "year",
			"NACIONALITAT_REGIO": "category_value",
			"Valor":              "value",
		},
	}
	rows := []map[string]any{{
		"Codi_Barri":         "33",
		"Data_Referencia":    "2022-01-01",
		"NACIONALITAT_REGIO": "America",
		"Valor":              412.0,
	}}

	recs, err := rowsToRecords(src, st, rows, extract.Params{}, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2022", recs[0].PeriodKey)
	assert.Equal(t, map[string]string{
		"category":       "nationality",
		"category_value": "America",
	}, recs[0].Dims)
}

func TestParseCSV(t *testing.T) {
	src := sources.SourceConfig{
		Name:      "rent_price",
		Priority:  20,
		Dims:      []string{"tenure"},
		ConstDims: map[string]string{"tenure": "rent"},
	}
	st := sources.StrategyConfig{
		Kind: "csv",
		FieldMap: map[string]string{
			"Codi_Barri":   "neighborhood_id",
			"Any":          "year",
			"Trimestre":    "quarter",
			"Preu_mensual": "value",
		},
	}
	data := []byte("Codi_Barri,Any,Trimestre,Preu_mensual\n" +
		"4,2021,T3,912.5\n" +
		"4,2021,4,930.0\n")

	recs, err := parseCSV(src, st, data, extract.Params{}, time.Now())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2021-Q3", recs[0].PeriodKey)
	assert.Equal(t, "2021-Q4", recs[1].PeriodKey)
	assert.Equal(t, "rent", recs[0].Dims["tenure"])
	assert.True(t, recs[0].SectionLevel == false)
}

func TestPeriodHelpers(t *testing.T) {
	assert.Equal(t, 2021, parseYear("2021"))
	assert.Equal(t, 2021, parseYear("2021-01-01"))
	assert.Equal(t, 0, parseYear(""))
	assert.Equal(t, 0, parseYear("abc"))

	assert.Equal(t, 3, parseQuarter("T3"))
	assert.Equal(t, 3, parseQuarter("Q3"))
	assert.Equal(t, 3, parseQuarter("3"))
	assert.Equal(t, 0, parseQuarter("5"))
	assert.Equal(t, 0, parseQuarter(""))

	assert.Equal(t, "2021", periodKey(2021, 0))
	assert.Equal(t, "2021-Q2", periodKey(2021, 2))
	assert.Equal(t, "", periodKey(0, 2))
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{103.4, 103.4, true},
		{"103,4", 103.4, true},
		{"103.4", 103.4, true},
		{" 12 ", 12, true},
		{"nd", 0, false},
		{"--", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := parseNumber(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		if ok {
			assert.InDelta(t, c.want, got, 1e-9)
		}
	}
}
