// Package manifest defines the contract of the append-only
// extraction ledger. One entry is appended per extraction attempt,
// success or failure; entries are never mutated or deleted. The
// SQLite-backed implementation lives in internal/iomanifest.
package manifest

import (
	"context"
	"time"
)

// Entry is one extraction attempt.
type Entry struct {
	// ID is the append-order sequence number, monotonic per ledger.
	ID int64

	// Source is the configured source name.
	Source string

	// ParamsHash fingerprints the extraction parameters; identical
	// parameters hash identically across runs.
	ParamsHash string

	// ParamsJSON is the human-readable parameter set.
	ParamsJSON string

	// Strategy is the fallback strategy that produced the outcome,
	// or the last one attempted on failure.
	Strategy string

	// Success is true when the attempt yielded usable records.
	Success bool

	// OutputPath is the persisted raw file for successful attempts.
	OutputPath string

	// Error summarizes the per-strategy failure reasons when the
	// attempt failed.
	Error string

	// CreatedAt is the attempt timestamp.
	CreatedAt time.Time
}

// Stats summarizes the ledger for the status command.
type Stats struct {
	Entries   int
	Successes int
	Failures  int
	Sources   int
}

// Ledger is the append-only manifest. Append order is serialized by
// the implementation so concurrent extractors produce a well-defined
// sequence.
type Ledger interface {
	// Append records one extraction attempt and returns its sequence
	// number.
	Append(ctx context.Context, e Entry) (int64, error)

	// LatestSuccess returns the most recent successful entry for the
	// given source and parameter hash, or nil when none exists. This
	// is the idempotent-rerun lookup: a hit means the raw file can be
	// replayed instead of re-hitting the network.
	LatestSuccess(ctx context.Context, source, paramsHash string) (*Entry, error)

	// BySource lists all entries for a source in append order.
	BySource(ctx context.Context, source string) ([]Entry, error)

	// Stats summarizes the ledger.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying store.
	Close() error
}
