package ioextract_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/barriodata/bcndb/internal/ioextract"
	"github.com/barriodata/bcndb/internal/iomanifest"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/manifest"
	"github.com/barriodata/bcndb/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractConfig() config.ExtractConfig {
	return config.ExtractConfig{
		RateDelayMs:    1,
		HTTPTimeoutSec: 5,
		MaxRetries:     2,
	}
}

func newLedger(t *testing.T) manifest.Ledger {
	t.Helper()
	l, err := iomanifest.New(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// ckanHandler serves a minimal datastore_search endpoint with the
// given rows.
func ckanHandler(rows []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)
		served := rows
		if offset >= len(rows) {
			served = nil
		} else {
			served = rows[offset:]
		}
		resp := map[string]any{
			"success": true,
			"result": map[string]any{
				"records": served,
				"total":   len(rows),
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func incomeSource(url string) sources.SourceConfig {
	return sources.SourceConfig{
		Name:     "income_rfd",
		Table:    "income",
		Priority: 20,
		Strategies: []sources.StrategyConfig{{
			Kind:       "opendata",
			URL:        url,
			ResourceID: "est-renda-familiar",
			FieldMap: map[string]string{
				"Codi_Barri": "neighborhood_id",
				"Any":        "year",
				"Index_RFD":  "value",
			},
		}},
	}
}

func TestExtractFromNetwork(t *testing.T) {
	srv := httptest.NewServer(ckanHandler([]map[string]any{
		{"Codi_Barri": "5", "Any": "2021", "Index_RFD": 103.4},
		{"Codi_Barri": "6", "Any": "2021", "Index_RFD": 94.2},
	}))
	defer srv.Close()

	ledger := newLedger(t)
	rawDir := t.TempDir()
	ex := ioextract.New(incomeSource(srv.URL), extractConfig(),
		ledger, rawDir)

	p := extract.Params{Source: "income_rfd", YearFrom: 2021, YearTo: 2021}
	res, err := ex.Extract(t.Context(), p)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "opendata", res.Meta.StrategyUsed)
	assert.False(t, res.Meta.FromCache)

	// raw payload persisted under raw/<source>/<hash>/
	entry, err := ledger.LatestSuccess(t.Context(), "income_rfd", p.Hash())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.FileExists(t, entry.OutputPath)
	assert.Contains(t, entry.OutputPath,
		filepath.Join(rawDir, "income_rfd", p.Hash()))
}

func TestExtractReplaysFromCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls++
			ckanHandler([]map[string]any{
				{"Codi_Barri": "5", "Any": "2021", "Index_RFD": 103.4},
			})(w, r)
		}))
	defer srv.Close()

	ledger := newLedger(t)
	ex := ioextract.New(incomeSource(srv.URL), extractConfig(),
		ledger, t.TempDir())

	p := extract.Params{Source: "income_rfd", YearFrom: 2021, YearTo: 2021}

	res, err := ex.Extract(t.Context(), p)
	require.NoError(t, err)
	assert.False(t, res.Meta.FromCache)
	networkCalls := calls

	// identical params replay the persisted payload
	res, err = ex.Extract(t.Context(), p)
	require.NoError(t, err)
	assert.True(t, res.Meta.FromCache)
	require.Len(t, res.Records, 1)
	assert.Equal(t, networkCalls, calls)

	// different params go back to the network
	p2 := extract.Params{Source: "income_rfd", YearFrom: 2020, YearTo: 2021}
	res, err = ex.Extract(t.Context(), p2)
	require.NoError(t, err)
	assert.False(t, res.Meta.FromCache)
	assert.Greater(t, calls, networkCalls)
}

func TestExtractRefreshBypassesCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls++
			ckanHandler([]map[string]any{
				{"Codi_Barri": "5", "Any": "2021", "Index_RFD": 103.4},
			})(w, r)
		}))
	defer srv.Close()

	cfg := extractConfig()
	cfg.Refresh = true
	ledger := newLedger(t)
	ex := ioextract.New(incomeSource(srv.URL), cfg, ledger, t.TempDir())

	p := extract.Params{Source: "income_rfd"}
	_, err := ex.Extract(t.Context(), p)
	require.NoError(t, err)
	first := calls
	_, err = ex.Extract(t.Context(), p)
	require.NoError(t, err)
	assert.Greater(t, calls, first)
}

func TestExtractFallsBackToCSV(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			// permanent failure, no retry expected
			http.Error(w, "gone", http.StatusNotFound)
		}))
	defer apiSrv.Close()

	csvSrv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "Codi_Barri,Any,Index_RFD\n5,2021,103.4\n")
		}))
	defer csvSrv.Close()

	src := incomeSource(apiSrv.URL)
	src.Strategies = append(src.Strategies, sources.StrategyConfig{
		Kind: "csv",
		URL:  csvSrv.URL,
		FieldMap: map[string]string{
			"Codi_Barri": "neighborhood_id",
			"Any":        "year",
			"Index_RFD":  "value",
		},
	})

	ledger := newLedger(t)
	ex := ioextract.New(src, extractConfig(), ledger, t.TempDir())

	res, err := ex.Extract(t.Context(),
		extract.Params{Source: "income_rfd"})
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Meta.StrategyUsed)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Meta.Attempts, 2)
	assert.Equal(t, extract.Permanent, res.Meta.Attempts[0].Kind)
}

func TestExtractRetriesTransient(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			ckanHandler([]map[string]any{
				{"Codi_Barri": "5", "Any": "2021", "Index_RFD": 103.4},
			})(w, r)
		}))
	defer srv.Close()

	ledger := newLedger(t)
	ex := ioextract.New(incomeSource(srv.URL), extractConfig(),
		ledger, t.TempDir())

	res, err := ex.Extract(t.Context(),
		extract.Params{Source: "income_rfd"})
	require.NoError(t, err)
	assert.Equal(t, "opendata", res.Meta.StrategyUsed)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestExtractExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
	defer srv.Close()

	ledger := newLedger(t)
	ex := ioextract.New(incomeSource(srv.URL), extractConfig(),
		ledger, t.TempDir())

	p := extract.Params{Source: "income_rfd"}
	_, err := ex.Extract(t.Context(), p)
	require.Error(t, err)
	assert.True(t, ioextract.IsExhausted(err))

	// the failed attempt still lands in the manifest
	entries, lErr := ledger.BySource(t.Context(), "income_rfd")
	require.NoError(t, lErr)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Contains(t, entries[0].Error, "404")

	// and no successful entry exists to replay
	entry, lErr := ledger.LatestSuccess(t.Context(), "income_rfd", p.Hash())
	require.NoError(t, lErr)
	assert.Nil(t, entry)
}

func TestExtractCacheFileGone(t *testing.T) {
	srv := httptest.NewServer(ckanHandler([]map[string]any{
		{"Codi_Barri": "5", "Any": "2021", "Index_RFD": 103.4},
	}))
	defer srv.Close()

	ledger := newLedger(t)
	ex := ioextract.New(incomeSource(srv.URL), extractConfig(),
		ledger, t.TempDir())

	p := extract.Params{Source: "income_rfd"}
	_, err := ex.Extract(t.Context(), p)
	require.NoError(t, err)

	// delete the raw file behind the manifest's back
	entry, err := ledger.LatestSuccess(t.Context(), "income_rfd", p.Hash())
	require.NoError(t, err)
	require.NoError(t, os.Remove(entry.OutputPath))

	// replay falls back to the network instead of failing
	res, err := ex.Extract(t.Context(), p)
	require.NoError(t, err)
	assert.False(t, res.Meta.FromCache)
	require.Len(t, res.Records, 1)
}
