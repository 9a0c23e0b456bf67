// Package ioload owns all writes to the warehouse fact tables and
// the audit log. Each fact table batch is loaded in one transaction
// guarded by an exclusive per-table advisory lock, so concurrent
// pipeline runs serialize per table and a failed batch leaves nothing
// behind.
package ioload

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/db"
	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/validate"
	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
)

type loader struct {
	op        db.Operator
	batchSize int

	// progress enables a terminal progress bar during large loads.
	progress bool
}

// New creates the warehouse loader. batchSize bounds the number of
// fact rows per upsert statement.
func New(op db.Operator, batchSize int, progress bool) bcndb.Loader {
	if batchSize <= 0 {
		batchSize = 5_000
	}
	return &loader{op: op, batchSize: batchSize, progress: progress}
}

// RefSets fetches the dimension key sets fact rows are validated
// against.
func (l *loader) RefSets(ctx context.Context) (validate.RefSets, error) {
	refs := validate.RefSets{
		Neighborhoods: make(map[int]struct{}),
		Periods:       make(map[string]struct{}),
	}

	rows, err := l.op.Pool().Query(ctx,
		"SELECT id FROM neighborhoods")
	if err != nil {
		return refs, RefSetsError("neighborhoods", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return refs, RefSetsError("neighborhoods", err)
		}
		refs.Neighborhoods[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return refs, RefSetsError("neighborhoods", err)
	}

	pRows, err := l.op.Pool().Query(ctx,
		"SELECT period_key FROM time_periods")
	if err != nil {
		return refs, RefSetsError("time_periods", err)
	}
	defer pRows.Close()
	for pRows.Next() {
		var key string
		if err := pRows.Scan(&key); err != nil {
			return refs, RefSetsError("time_periods", err)
		}
		refs.Periods[key] = struct{}{}
	}
	if err := pRows.Err(); err != nil {
		return refs, RefSetsError("time_periods", err)
	}

	return refs, nil
}

// LoadTable upserts one fact table batch. All-or-nothing: every
// record lands or the transaction rolls back and the table keeps its
// previous content.
func (l *loader) LoadTable(
	ctx context.Context,
	table string,
	recs []extract.Record,
) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := l.op.Pool().Begin(ctx)
	if err != nil {
		return 0, BeginError(table, err)
	}
	defer tx.Rollback(ctx)

	// serialize concurrent loads of the same table; released at
	// commit or rollback
	_, err = tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", table)
	if err != nil {
		return 0, LockError(table, err)
	}

	var bar *pb.ProgressBar
	if l.progress {
		bar = pb.StartNew(len(recs))
		defer bar.Finish()
	}

	now := time.Now()
	var loaded int
	for start := 0; start < len(recs); start += l.batchSize {
		end := min(start+l.batchSize, len(recs))
		batch := recs[start:end]

		sql, args, err := upsertBatch(table, batch, now)
		if err != nil {
			return 0, UpsertError(table, err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return 0, UpsertError(table, err)
		}

		loaded += len(batch)
		if bar != nil {
			bar.SetCurrent(int64(loaded))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, CommitError(table, err)
	}

	slog.Info("fact table loaded",
		"table", table,
		"rows", humanize.Comma(int64(loaded)),
	)
	return loaded, nil
}

// WriteAudit appends the run's audit record to etl_runs. Called
// exactly once per run, aborted runs included.
func (l *loader) WriteAudit(
	ctx context.Context,
	sum bcndb.RunSummary,
) error {
	detail, err := json.Marshal(sum.Tables)
	if err != nil {
		return AuditError(err)
	}

	_, err = l.op.Pool().Exec(ctx, `
		INSERT INTO etl_runs
			(run_id, started_at, finished_at, overall_status,
			 table_detail)
		VALUES ($1, $2, $3, $4, $5)`,
		sum.RunID, sum.StartedAt, sum.FinishedAt,
		string(sum.Status), string(detail),
	)
	if err != nil {
		return AuditError(err)
	}
	return nil
}
