// Package iopipeline orchestrates a warehouse run through its stages:
// INIT, EXTRACT, CLEAN, VALIDATE, LOAD. Source failures are isolated
// (an exhausted source contributes zero rows), table failures are
// isolated (a fatal table aborts alone), and the audit record is
// written exactly once per run, aborted runs included.
package iopipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/clean"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/schema"
	"github.com/barriodata/bcndb/pkg/sources"
	"github.com/barriodata/bcndb/pkg/validate"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type pipeline struct {
	cfg        *config.Config
	sc         *sources.SourcesConfig
	extractors []bcndb.Extractor
	loader     bcndb.Loader
}

// New assembles the pipeline. The extractor list is already filtered
// to the sources requested for this run.
func New(
	cfg *config.Config,
	sc *sources.SourcesConfig,
	extractors []bcndb.Extractor,
	loader bcndb.Loader,
) bcndb.Pipeline {
	return &pipeline{
		cfg:        cfg,
		sc:         sc,
		extractors: extractors,
		loader:     loader,
	}
}

// outcome is what one source contributed to the run.
type outcome struct {
	records []extract.Record
	meta    extract.Meta
	err     error
}

func (p *pipeline) Run(ctx context.Context) (bcndb.RunSummary, error) {
	sum := bcndb.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	slog.Info("pipeline run started",
		"run_id", sum.RunID,
		"sources", len(p.extractors),
		"year_from", p.cfg.Extract.YearFrom,
		"year_to", p.cfg.Extract.YearTo,
	)

	// INIT: dimension keys for referential checks
	refs, err := p.loader.RefSets(ctx)
	if err != nil {
		return sum, err
	}

	// EXTRACT: fan out, capture per-source outcomes, never fail the
	// group because of one source
	outcomes := p.extractAll(ctx)

	// CLEAN / VALIDATE / LOAD per fact table, isolated
	for _, table := range schema.FactTables {
		if err := ctx.Err(); err != nil {
			break
		}
		res := p.runTable(ctx, table, outcomes, refs)
		sum.Tables = append(sum.Tables, res)
	}

	sum.FinishedAt = time.Now()
	sum.Status = deriveStatus(sum.Tables)

	if p.cfg.Pipeline.DryRun {
		slog.Info("dry run, skipping audit record",
			"run_id", sum.RunID, "status", sum.Status)
		return sum, nil
	}
	if err := p.loader.WriteAudit(ctx, sum); err != nil {
		return sum, err
	}

	slog.Info("pipeline run finished",
		"run_id", sum.RunID,
		"status", sum.Status,
		"duration", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond),
	)
	return sum, nil
}

// extractAll runs every extractor with bounded concurrency. Each
// extractor serializes its own HTTP calls; JobsNumber bounds how many
// sources are in flight at once.
func (p *pipeline) extractAll(ctx context.Context) map[string]outcome {
	outcomes := make(map[string]outcome, len(p.extractors))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.JobsNumber, 1))

	for _, ex := range p.extractors {
		g.Go(func() error {
			params := extract.Params{
				Source:   ex.Source(),
				YearFrom: p.cfg.Extract.YearFrom,
				YearTo:   p.cfg.Extract.YearTo,
			}
			res, err := ex.Extract(gctx, params)
			if err != nil {
				slog.Warn("source contributed no records",
					"source", ex.Source(), "error", err)
			}

			mu.Lock()
			outcomes[ex.Source()] = outcome{
				records: res.Records,
				meta:    res.Meta,
				err:     err,
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func (p *pipeline) runTable(
	ctx context.Context,
	table string,
	outcomes map[string]outcome,
	refs validate.RefSets,
) bcndb.TableResult {
	res := bcndb.TableResult{
		Table:   table,
		Sources: make(map[string]bcndb.SourceResult),
	}

	srcs := p.sc.SourcesFor(table)
	var (
		recs      []extract.Record
		secondary []string
	)
	for _, src := range srcs {
		o, ok := outcomes[src.Name]
		if !ok {
			continue
		}
		sr := bcndb.SourceResult{
			Records:   len(o.records),
			Strategy:  o.meta.StrategyUsed,
			FromCache: o.meta.FromCache,
		}
		if o.err != nil {
			sr.Error = o.err.Error()
		}
		res.Sources[src.Name] = sr

		recs = append(recs, o.records...)
		secondary = append(secondary, src.Secondary...)
	}

	if len(recs) == 0 {
		res.Status = bcndb.TableSkipped
		slog.Info("fact table skipped, no records extracted",
			"table", table)
		return res
	}

	// CLEAN
	cleaned, stats := clean.Clean(recs, secondary)
	slog.Debug("cleaned",
		"table", table,
		"input", stats.Input,
		"output", stats.Output,
		"sections_aggregated", stats.SectionsAggregated,
		"duplicates_resolved", stats.DuplicatesResolved,
	)

	// VALIDATE
	th := p.sc.TableFor(table).Thresholds(
		p.cfg.Pipeline.FKCeiling,
		p.cfg.Pipeline.CompletenessTarget,
		p.cfg.Pipeline.ValidityTarget,
	)

	kept, fkRep := validate.ForeignKeys(cleaned, refs, th.FKCeiling)
	res.FK = fkRep
	res.RowsExcluded = fkRep.Excluded
	if fkRep.Fatal {
		res.Status = bcndb.TableAborted
		res.Error = fmt.Sprintf(
			"referential violations %.4f exceed ceiling %.4f",
			fkRep.Ratio, th.FKCeiling,
		)
		slog.Error("fact table aborted",
			"table", table,
			"excluded", fkRep.Excluded,
			"ratio", fkRep.Ratio,
			"ceiling", th.FKCeiling,
		)
		return res
	}

	res.Quality = validate.Quality(
		kept, len(refs.Neighborhoods), p.expectedPeriods(srcs), th)
	if res.Quality.Degraded {
		slog.Warn("fact table under quality target",
			"table", table,
			"completeness", res.Quality.Completeness,
			"validity", res.Quality.Validity,
		)
	}

	// LOAD
	if p.cfg.Pipeline.DryRun {
		slog.Info("dry run, skipping load",
			"table", table, "rows", len(kept))
	} else {
		loaded, err := p.loader.LoadTable(ctx, table, kept)
		if err != nil {
			res.Status = bcndb.TableAborted
			res.Error = err.Error()
			slog.Error("fact table load failed",
				"table", table, "error", err)
			return res
		}
		res.RowsLoaded = loaded
	}

	if res.Quality.Degraded {
		res.Status = bcndb.TableDegraded
	} else {
		res.Status = bcndb.TableCommitted
	}
	return res
}

// expectedPeriods builds the period keys the table should cover,
// given the grains of the sources feeding it.
func (p *pipeline) expectedPeriods(srcs []sources.SourceConfig) []string {
	hasYear, hasQuarter := false, false
	for _, src := range srcs {
		if src.Granularity == "quarter" {
			hasQuarter = true
		} else {
			hasYear = true
		}
	}

	var keys []string
	for y := p.cfg.Extract.YearFrom; y <= p.cfg.Extract.YearTo; y++ {
		if hasYear {
			keys = append(keys, fmt.Sprintf("%d", y))
		}
		if hasQuarter {
			for q := 1; q <= 4; q++ {
				keys = append(keys, fmt.Sprintf("%d-Q%d", y, q))
			}
		}
	}
	return keys
}

// deriveStatus folds per-table outcomes into the run status:
// committed when every processed table committed clean, degraded when
// anything committed alongside degradation or aborts, aborted when
// nothing was loaded at all.
func deriveStatus(tables []bcndb.TableResult) bcndb.RunStatus {
	var loaded, degraded, aborted int
	for _, t := range tables {
		switch t.Status {
		case bcndb.TableCommitted:
			loaded++
		case bcndb.TableDegraded:
			loaded++
			degraded++
		case bcndb.TableAborted:
			aborted++
		}
	}

	if loaded == 0 {
		return bcndb.RunAborted
	}
	if degraded > 0 || aborted > 0 {
		return bcndb.RunDegraded
	}
	return bcndb.RunCommitted
}
