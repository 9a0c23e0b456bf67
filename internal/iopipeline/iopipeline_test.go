package iopipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/barriodata/bcndb/internal/iopipeline"
	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/sources"
	"github.com/barriodata/bcndb/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	name    string
	records []extract.Record
	err     error
}

func (f *fakeExtractor) Source() string { return f.name }

func (f *fakeExtractor) Extract(
	_ context.Context, _ extract.Params,
) (extract.Result, error) {
	if f.err != nil {
		return extract.Result{}, f.err
	}
	return extract.Result{
		Records: f.records,
		Meta:    extract.Meta{StrategyUsed: "opendata"},
	}, nil
}

type fakeLoader struct {
	mu      sync.Mutex
	loaded  map[string][]extract.Record
	audits  []bcndb.RunSummary
	loadErr map[string]error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		loaded:  make(map[string][]extract.Record),
		loadErr: make(map[string]error),
	}
}

func (f *fakeLoader) RefSets(context.Context) (validate.RefSets, error) {
	refs := validate.RefSets{
		Neighborhoods: make(map[int]struct{}),
		Periods:       map[string]struct{}{"2021": {}},
	}
	for i := 1; i <= 73; i++ {
		refs.Neighborhoods[i] = struct{}{}
	}
	return refs, nil
}

func (f *fakeLoader) LoadTable(
	_ context.Context, table string, recs []extract.Record,
) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadErr[table]; err != nil {
		return 0, err
	}
	f.loaded[table] = recs
	return len(recs), nil
}

func (f *fakeLoader) WriteAudit(
	_ context.Context, sum bcndb.RunSummary,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, sum)
	return nil
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Extract.YearFrom = 2021
	cfg.Extract.YearTo = 2021
	cfg.JobsNumber = 2
	return cfg
}

// sourcesConfig with relaxed quality targets so sparse fixtures
// commit clean.
func testSources() *sources.SourcesConfig {
	return &sources.SourcesConfig{
		Sources: []sources.SourceConfig{
			{
				Name: "income_rfd", Table: "income", Priority: 20,
				Secondary: []string{"income_per_capita"},
			},
			{
				Name: "sale_price", Table: "housing_prices", Priority: 20,
				Dims: []string{"tenure"},
			},
		},
		Tables: []sources.TableConfig{
			{
				Name: "income", FKCeiling: 0.5,
				CompletenessTarget: 0.01, ValidityTarget: 0.5,
			},
			{
				Name: "housing_prices", FKCeiling: 0.5,
				CompletenessTarget: 0.01, ValidityTarget: 0.5,
			},
		},
	}
}

func incomeRecords(n int) []extract.Record {
	recs := make([]extract.Record, 0, n)
	for i := 1; i <= n; i++ {
		recs = append(recs, extract.Record{
			NeighborhoodID: i, PeriodKey: "2021",
			Value: 100, SourceTag: "income_rfd", SourcePriority: 20,
		})
	}
	return recs
}

func TestRunCommitted(t *testing.T) {
	loader := newFakeLoader()
	p := iopipeline.New(testConfig(), testSources(),
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: incomeRecords(10)},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, bcndb.RunCommitted, sum.Status)
	assert.NotEmpty(t, sum.RunID)

	byTable := tableResults(sum)
	assert.Equal(t, bcndb.TableCommitted, byTable["income"].Status)
	assert.Equal(t, 10, byTable["income"].RowsLoaded)
	// tables with no extracted records are skipped, not aborted
	assert.Equal(t, bcndb.TableSkipped, byTable["housing_prices"].Status)

	assert.Len(t, loader.loaded["income"], 10)
	require.Len(t, loader.audits, 1)
	assert.Equal(t, bcndb.RunCommitted, loader.audits[0].Status)
}

func TestRunSourceFailureIsolated(t *testing.T) {
	loader := newFakeLoader()
	p := iopipeline.New(testConfig(), testSources(),
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: incomeRecords(10)},
			&fakeExtractor{
				name: "sale_price",
				err: &extract.ExhaustedError{
					Source: "sale_price",
					Attempts: []extract.Attempt{
						{Strategy: "opendata", Kind: extract.Permanent},
					},
				},
			},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)

	byTable := tableResults(sum)
	assert.Equal(t, bcndb.TableCommitted, byTable["income"].Status)
	assert.Equal(t, bcndb.TableSkipped, byTable["housing_prices"].Status)
	assert.Contains(t,
		byTable["housing_prices"].Sources["sale_price"].Error,
		"exhausted")

	// one failed source never aborts the run
	assert.Equal(t, bcndb.RunCommitted, sum.Status)
}

func TestRunFKAbort(t *testing.T) {
	// over half the rows reference unknown neighborhoods, the 0.5
	// ceiling is exceeded
	recs := incomeRecords(3)
	for i := 0; i < 4; i++ {
		recs = append(recs, extract.Record{
			NeighborhoodID: 900 + i, PeriodKey: "2021",
			Value: 100, SourceTag: "income_rfd", SourcePriority: 20,
		})
	}

	loader := newFakeLoader()
	p := iopipeline.New(testConfig(), testSources(),
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: recs},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)

	byTable := tableResults(sum)
	income := byTable["income"]
	assert.Equal(t, bcndb.TableAborted, income.Status)
	assert.Equal(t, 4, income.FK.Excluded)
	assert.True(t, income.FK.Fatal)
	assert.Contains(t, income.Error, "ceiling")

	// nothing committed for the aborted table
	assert.Empty(t, loader.loaded["income"])
	assert.Equal(t, bcndb.RunAborted, sum.Status)

	// the audit record is written even on abort
	require.Len(t, loader.audits, 1)
	assert.Equal(t, bcndb.RunAborted, loader.audits[0].Status)
}

func TestRunDegraded(t *testing.T) {
	sc := testSources()
	// realistic completeness target makes 10 of 73 cells degraded
	sc.Tables[0].CompletenessTarget = 0.90

	loader := newFakeLoader()
	p := iopipeline.New(testConfig(), sc,
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: incomeRecords(10)},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)

	byTable := tableResults(sum)
	income := byTable["income"]
	assert.Equal(t, bcndb.TableDegraded, income.Status)
	assert.True(t, income.Quality.Degraded)
	// degraded tables still commit
	assert.Equal(t, 10, income.RowsLoaded)
	assert.Equal(t, bcndb.RunDegraded, sum.Status)
}

func TestRunLoadFailureAbortsTableOnly(t *testing.T) {
	loader := newFakeLoader()
	loader.loadErr["income"] = errors.New("connection reset")

	p := iopipeline.New(testConfig(), testSources(),
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: incomeRecords(10)},
			&fakeExtractor{name: "sale_price", records: []extract.Record{{
				NeighborhoodID: 3, PeriodKey: "2021",
				Dims:  map[string]string{"tenure": "sale"},
				Value: 4000, SourceTag: "sale_price", SourcePriority: 20,
			}}},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)

	byTable := tableResults(sum)
	assert.Equal(t, bcndb.TableAborted, byTable["income"].Status)
	assert.Equal(t, bcndb.TableCommitted, byTable["housing_prices"].Status)
	assert.Equal(t, bcndb.RunDegraded, sum.Status)
}

func TestRunDryRun(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.DryRun = true

	loader := newFakeLoader()
	p := iopipeline.New(cfg, testSources(),
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: incomeRecords(10)},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, bcndb.RunCommitted, sum.Status)

	// validate ran, load and audit did not
	assert.Empty(t, loader.loaded)
	assert.Empty(t, loader.audits)
	byTable := tableResults(sum)
	assert.Equal(t, 0, byTable["income"].RowsLoaded)
	assert.Greater(t, byTable["income"].Quality.PresentCells, 0)
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	sc := testSources()
	sc.Sources = append(sc.Sources, sources.SourceConfig{
		Name: "income_atlas", Table: "income", Priority: 10,
		SectionLevel: true,
	})

	atlas := []extract.Record{
		{
			NeighborhoodID: 1, PeriodKey: "2021", Value: 90, Weight: 100,
			SourceTag: "income_atlas", SourcePriority: 10, SectionLevel: true,
		},
		{
			NeighborhoodID: 1, PeriodKey: "2021", Value: 110, Weight: 300,
			SourceTag: "income_atlas", SourcePriority: 10, SectionLevel: true,
		},
	}

	loader := newFakeLoader()
	p := iopipeline.New(testConfig(), sc,
		[]bcndb.Extractor{
			&fakeExtractor{name: "income_rfd", records: incomeRecords(1)},
			&fakeExtractor{name: "income_atlas", records: atlas},
		}, loader)

	sum, err := p.Run(t.Context())
	require.NoError(t, err)

	byTable := tableResults(sum)
	require.Equal(t, 1, byTable["income"].RowsLoaded)

	// the neighborhood-grain source outranks the aggregated sections
	rec := loader.loaded["income"][0]
	assert.Equal(t, "income_rfd", rec.SourceTag)
	assert.InDelta(t, 100, rec.Value, 1e-9)
}

func tableResults(sum bcndb.RunSummary) map[string]bcndb.TableResult {
	res := make(map[string]bcndb.TableResult, len(sum.Tables))
	for _, tr := range sum.Tables {
		res[tr.Table] = tr
	}
	return res
}
