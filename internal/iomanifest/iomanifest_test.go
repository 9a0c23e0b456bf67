package iomanifest_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/barriodata/bcndb/internal/iomanifest"
	"github.com/barriodata/bcndb/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) manifest.Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.db")
	l, err := iomanifest.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendMonotonic(t *testing.T) {
	l := newLedger(t)
	ctx := t.Context()

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := l.Append(ctx, manifest.Entry{
			Source:     "income_rfd",
			ParamsHash: "abc123",
			Strategy:   "opendata",
			Success:    true,
			OutputPath: "raw/income_rfd/abc123/f.json",
		})
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestLatestSuccess(t *testing.T) {
	l := newLedger(t)
	ctx := t.Context()

	// no entries yet
	e, err := l.LatestSuccess(ctx, "income_rfd", "abc123")
	require.NoError(t, err)
	assert.Nil(t, e)

	// a failure does not count
	_, err = l.Append(ctx, manifest.Entry{
		Source: "income_rfd", ParamsHash: "abc123",
		Strategy: "opendata", Success: false,
		Error: "http 503",
	})
	require.NoError(t, err)

	e, err = l.LatestSuccess(ctx, "income_rfd", "abc123")
	require.NoError(t, err)
	assert.Nil(t, e)

	// two successes: the later one wins
	_, err = l.Append(ctx, manifest.Entry{
		Source: "income_rfd", ParamsHash: "abc123",
		Strategy: "opendata", Success: true,
		OutputPath: "old.json",
	})
	require.NoError(t, err)
	_, err = l.Append(ctx, manifest.Entry{
		Source: "income_rfd", ParamsHash: "abc123",
		Strategy: "csv", Success: true,
		OutputPath: "new.json",
	})
	require.NoError(t, err)

	e, err = l.LatestSuccess(ctx, "income_rfd", "abc123")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "new.json", e.OutputPath)
	assert.Equal(t, "csv", e.Strategy)

	// different params hash is a miss
	e, err = l.LatestSuccess(ctx, "income_rfd", "other")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestBySourceOrder(t *testing.T) {
	l := newLedger(t)
	ctx := t.Context()

	for _, src := range []string{"a", "b", "a", "a"} {
		_, err := l.Append(ctx, manifest.Entry{
			Source: src, ParamsHash: "h", Strategy: "s",
			Success: true,
		})
		require.NoError(t, err)
	}

	entries, err := l.BySource(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Less(t, entries[0].ID, entries[1].ID)
	assert.Less(t, entries[1].ID, entries[2].ID)
}

func TestStats(t *testing.T) {
	l := newLedger(t)
	ctx := t.Context()

	_, err := l.Append(ctx, manifest.Entry{
		Source: "a", ParamsHash: "h", Strategy: "s", Success: true,
	})
	require.NoError(t, err)
	_, err = l.Append(ctx, manifest.Entry{
		Source: "a", ParamsHash: "h", Strategy: "s", Success: false,
	})
	require.NoError(t, err)
	_, err = l.Append(ctx, manifest.Entry{
		Source: "b", ParamsHash: "h", Strategy: "s", Success: true,
	})
	require.NoError(t, err)

	s, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, manifest.Stats{
		Entries: 3, Successes: 2, Failures: 1, Sources: 2,
	}, s)
}

func TestTimestampRoundTrip(t *testing.T) {
	l := newLedger(t)
	ctx := t.Context()

	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	_, err := l.Append(ctx, manifest.Entry{
		Source: "a", ParamsHash: "h", Strategy: "s",
		Success: true, CreatedAt: at,
	})
	require.NoError(t, err)

	e, err := l.LatestSuccess(ctx, "a", "h")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.CreatedAt.Equal(at))
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	ctx := t.Context()

	l, err := iomanifest.New(path)
	require.NoError(t, err)
	id1, err := l.Append(ctx, manifest.Entry{
		Source: "a", ParamsHash: "h", Strategy: "s", Success: true,
	})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = iomanifest.New(path)
	require.NoError(t, err)
	defer l.Close()

	id2, err := l.Append(ctx, manifest.Entry{
		Source: "a", ParamsHash: "h", Strategy: "s", Success: true,
	})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	s, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries)
}
