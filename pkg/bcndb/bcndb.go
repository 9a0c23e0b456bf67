// Package bcndb defines the lifecycle contracts of the warehouse:
// schema management, dimensional loading and the pipeline
// orchestrator. Implementations live in internal/io packages.
package bcndb

import (
	"context"
	"time"

	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/validate"
)

// SchemaManager manages the warehouse schema and dimensions.
// All operations are idempotent - safe to run multiple times.
type SchemaManager interface {
	// Create creates the schema via GORM AutoMigrate and seeds the
	// neighborhood and time dimensions.
	Create(ctx context.Context) error

	// Migrate updates the schema to the latest version.
	Migrate(ctx context.Context) error

	// Enrich fills missing neighborhood attributes (INE code from the
	// static reference mapping, centroid and area from stored
	// geometry). Populated values are never overwritten.
	Enrich(ctx context.Context) error
}

// TableStatus is the terminal state of one fact table within a run.
type TableStatus string

const (
	TableCommitted TableStatus = "committed"
	TableDegraded  TableStatus = "degraded"
	TableAborted   TableStatus = "aborted"
	TableSkipped   TableStatus = "skipped"
)

// RunStatus is the terminal state of a whole pipeline run.
type RunStatus string

const (
	RunCommitted RunStatus = "committed"
	RunDegraded  RunStatus = "degraded"
	RunAborted   RunStatus = "aborted"
)

// TableResult is the per-fact-table outcome recorded in the audit
// log and printed in the end-of-run summary.
type TableResult struct {
	Table        string                  `json:"table"`
	Status       TableStatus             `json:"status"`
	RowsLoaded   int                     `json:"rows_loaded"`
	RowsExcluded int                     `json:"rows_excluded"`
	FK           validate.FKReport       `json:"fk"`
	Quality      validate.QualityReport  `json:"quality"`
	Sources      map[string]SourceResult `json:"sources"`
	Error        string                  `json:"error,omitempty"`
}

// SourceResult is the per-source outcome within a run.
type SourceResult struct {
	Records   int    `json:"records"`
	Strategy  string `json:"strategy,omitempty"`
	FromCache bool   `json:"from_cache"`
	Error     string `json:"error,omitempty"`
}

// RunSummary aggregates a whole run.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Tables     []TableResult
}

// Extractor fetches raw records for one configured source. The
// returned error is *extract.ExhaustedError when every fallback
// strategy failed; the orchestrator treats that as "zero rows from
// this source", never as a run-level failure.
type Extractor interface {
	Source() string
	Extract(ctx context.Context, p extract.Params) (extract.Result, error)
}

// Loader owns all writes to dimension and fact tables.
type Loader interface {
	// RefSets fetches the dimension key sets the validators check
	// fact rows against.
	RefSets(ctx context.Context) (validate.RefSets, error)

	// LoadTable upserts one fact table's batch inside a single
	// transaction guarded by an exclusive per-table advisory lock.
	// All-or-nothing: on error nothing of the batch is committed.
	LoadTable(ctx context.Context, table string, recs []extract.Record) (int, error)

	// WriteAudit appends the run's audit record. Written exactly once
	// per run, even on abort.
	WriteAudit(ctx context.Context, sum RunSummary) error
}

// Pipeline runs the EXTRACT -> CLEAN -> VALIDATE -> LOAD sequence.
type Pipeline interface {
	Run(ctx context.Context) (RunSummary, error)
}
