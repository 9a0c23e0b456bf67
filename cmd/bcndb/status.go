package main

import (
	"context"
	"fmt"
	"time"

	"github.com/barriodata/bcndb/internal/iodb"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func getStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show extraction history and recent pipeline runs",
		Long: `Summarize the extraction manifest (attempts, successes, failures)
and the most recent pipeline runs recorded in the warehouse audit
table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	ctx := context.Background()

	ledger, err := openLedger()
	if err != nil {
		return err
	}
	defer ledger.Close()

	stats, err := ledger.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Extraction manifest:")
	fmt.Printf("  entries:   %s\n", humanize.Comma(int64(stats.Entries)))
	fmt.Printf("  successes: %s\n", humanize.Comma(int64(stats.Successes)))
	fmt.Printf("  failures:  %s\n", humanize.Comma(int64(stats.Failures)))
	fmt.Printf("  sources:   %d\n", stats.Sources)

	// the warehouse part is optional: status still works before
	// 'bcndb create'
	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		fmt.Printf("\nWarehouse unreachable: %v\n", err)
		return nil
	}
	defer op.Close()

	exists, err := op.TableExists(ctx, "etl_runs")
	if err != nil {
		return err
	}
	if !exists {
		fmt.Println("\nWarehouse has no etl_runs table yet; " +
			"run 'bcndb create' first.")
		return nil
	}

	rows, err := op.Pool().Query(ctx, `
		SELECT run_id, started_at, finished_at, overall_status
		FROM etl_runs
		ORDER BY started_at DESC
		LIMIT 5`)
	if err != nil {
		return err
	}
	defer rows.Close()

	fmt.Println("\nRecent pipeline runs:")
	var any bool
	for rows.Next() {
		var (
			runID, status       string
			startedAt, finished time.Time
		)
		if err := rows.Scan(
			&runID, &startedAt, &finished, &status); err != nil {
			return err
		}
		any = true
		fmt.Printf("  %s  %-9s  %s (%s)\n",
			runID, status,
			humanize.Time(startedAt),
			finished.Sub(startedAt).Round(time.Millisecond),
		)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !any {
		fmt.Println("  none")
	}
	return nil
}
