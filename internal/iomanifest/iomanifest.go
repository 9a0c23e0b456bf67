// Package iomanifest implements the extraction manifest as an
// append-only SQLite ledger. The database lives next to the raw file
// cache; rows are only ever inserted, never updated or deleted, so
// the full extraction history survives across runs.
package iomanifest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/barriodata/bcndb/pkg/manifest"
	_ "modernc.org/sqlite"
)

const createTable = `
CREATE TABLE IF NOT EXISTS manifest_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	params_hash TEXT NOT NULL,
	params_json TEXT NOT NULL,
	strategy TEXT NOT NULL,
	success INTEGER NOT NULL,
	output_path TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_manifest_lookup
	ON manifest_entries (source, params_hash, success);
`

type ledger struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite ledger at path.
func New(path string) (manifest.Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, OpenError(path, err)
	}

	// SQLite serializes writers; a single connection keeps append
	// order well-defined under concurrent extractors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, OpenError(path, err)
	}

	return &ledger{db: db}, nil
}

func (l *ledger) Append(
	ctx context.Context,
	e manifest.Entry,
) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO manifest_entries
			(source, params_hash, params_json, strategy,
			 success, output_path, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Source, e.ParamsHash, e.ParamsJSON, e.Strategy,
		e.Success, e.OutputPath, e.Error,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, AppendError(e.Source, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, AppendError(e.Source, err)
	}
	return id, nil
}

func (l *ledger) LatestSuccess(
	ctx context.Context,
	source, paramsHash string,
) (*manifest.Entry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, source, params_hash, params_json, strategy,
		       success, output_path, error, created_at
		FROM manifest_entries
		WHERE source = ? AND params_hash = ? AND success = 1
		ORDER BY id DESC
		LIMIT 1`,
		source, paramsHash,
	)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, LookupError(source, err)
	}
	return e, nil
}

func (l *ledger) BySource(
	ctx context.Context,
	source string,
) ([]manifest.Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, source, params_hash, params_json, strategy,
		       success, output_path, error, created_at
		FROM manifest_entries
		WHERE source = ?
		ORDER BY id`,
		source,
	)
	if err != nil {
		return nil, LookupError(source, err)
	}
	defer rows.Close()

	var res []manifest.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, LookupError(source, err)
		}
		res = append(res, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, LookupError(source, err)
	}
	return res, nil
}

func (l *ledger) Stats(
	ctx context.Context,
) (manifest.Stats, error) {
	var s manifest.Stats
	err := l.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(success), 0),
			COUNT(DISTINCT source)
		FROM manifest_entries`,
	).Scan(&s.Entries, &s.Successes, &s.Sources)
	if err != nil {
		return s, LookupError("stats", err)
	}
	s.Failures = s.Entries - s.Successes
	return s, nil
}

func (l *ledger) Close() error {
	return l.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*manifest.Entry, error) {
	var (
		e       manifest.Entry
		created string
	)
	err := s.Scan(
		&e.ID, &e.Source, &e.ParamsHash, &e.ParamsJSON,
		&e.Strategy, &e.Success, &e.OutputPath, &e.Error,
		&created,
	)
	if err != nil {
		return nil, err
	}
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
