package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/barriodata/bcndb/internal/iodb"
	"github.com/barriodata/bcndb/internal/ioload"
	"github.com/barriodata/bcndb/internal/iopipeline"
	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/spf13/cobra"
)

func getRunCmd() *cobra.Command {
	var (
		years       string
		sourceNames []string
		refresh     bool
		dryRun      bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full pipeline",
		Long: `Execute the full pipeline: extract from every configured source,
clean and deduplicate, validate against the dimensions and quality
thresholds, and load the fact tables.

Each fact table commits or aborts on its own; a failed source or an
aborted table never takes the rest of the run down with it. The run
is recorded in the etl_runs audit table.

Exit codes:
  0  every processed table committed clean
  2  committed, but some table was degraded or aborted
  1  aborted: no table committed

Examples:
  bcndb run
  bcndb run --years 2015-2025
  bcndb run --sources income_rfd,income_atlas --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := extractionOpts(cmd, years, sourceNames, refresh)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				opts = append(opts, config.OptPipelineDryRun(dryRun))
			}
			cfg.Update(opts)
			return runPipeline()
		},
	}

	addExtractionFlags(runCmd, &years, &sourceNames, &refresh)
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"extract, clean and validate, but skip the load stage")

	return runCmd
}

func runPipeline() error {
	ctx := context.Background()

	sc, err := loadSources()
	if err != nil {
		return err
	}
	srcs, err := selectedSources(sc)
	if err != nil {
		return err
	}

	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	progress := cfg.Log.Destination != "stdout" &&
		cfg.Log.Destination != "stderr"
	loader := ioload.New(op, cfg.Database.BatchSize, progress)

	p := iopipeline.New(cfg, sc, buildExtractors(srcs, ledger), loader)
	sum, err := p.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(sum)

	switch sum.Status {
	case bcndb.RunCommitted:
		return nil
	case bcndb.RunDegraded:
		os.Exit(2)
	default:
		os.Exit(1)
	}
	return nil
}

func printSummary(sum bcndb.RunSummary) {
	fmt.Printf("\nRun %s: %s (%s)\n",
		sum.RunID, sum.Status,
		sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond),
	)
	for _, t := range sum.Tables {
		switch t.Status {
		case bcndb.TableSkipped:
			fmt.Printf("  %-22s skipped\n", t.Table)
		case bcndb.TableAborted:
			fmt.Printf("  %-22s ABORTED: %s\n", t.Table, t.Error)
		default:
			fmt.Printf(
				"  %-22s %-9s %6d rows, %d excluded, "+
					"completeness %.2f, validity %.2f\n",
				t.Table, t.Status, t.RowsLoaded, t.RowsExcluded,
				t.Quality.Completeness, t.Quality.Validity,
			)
		}
	}
}
