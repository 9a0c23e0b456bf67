package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func getExtractCmd() *cobra.Command {
	var (
		years       string
		sourceNames []string
		refresh     bool
	)

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch raw data from the configured sources",
		Long: `Run the extraction stage only: fetch raw data from the configured
sources, persist the payloads under the raw cache and record every
attempt in the manifest. Nothing is written to the warehouse.

Useful for pre-warming the cache before a pipeline run, or for
inspecting what a source returns.

Examples:
  bcndb extract
  bcndb extract --years 2015-2025
  bcndb extract --sources income_rfd,rent_price --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := extractionOpts(cmd, years, sourceNames, refresh)
			if err != nil {
				return err
			}
			cfg.Update(opts)
			return runExtract()
		},
	}

	addExtractionFlags(extractCmd, &years, &sourceNames, &refresh)
	return extractCmd
}

func runExtract() error {
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

	extractors := buildExtractors(srcs, ledger)

	type line struct {
		source    string
		records   int
		strategy  string
		fromCache bool
		err       error
	}
	lines := make([]line, len(extractors))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.JobsNumber, 1))
	for i, ex := range extractors {
		g.Go(func() error {
			res, err := ex.Extract(gctx, extract.Params{
				Source:   ex.Source(),
				YearFrom: cfg.Extract.YearFrom,
				YearTo:   cfg.Extract.YearTo,
			})
			mu.Lock()
			lines[i] = line{
				source:    ex.Source(),
				records:   len(res.Records),
				strategy:  res.Meta.StrategyUsed,
				fromCache: res.Meta.FromCache,
				err:       err,
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	var failed int
	for _, l := range lines {
		switch {
		case l.err != nil:
			failed++
			fmt.Printf("  %-22s FAILED: %v\n", l.source, l.err)
		case l.fromCache:
			fmt.Printf("  %-22s %6d records (cache)\n",
				l.source, l.records)
		default:
			fmt.Printf("  %-22s %6d records via %s\n",
				l.source, l.records, l.strategy)
		}
	}

	fmt.Printf("\nRaw files: %s\n", config.RawDir(cfg.HomeDir))
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed",
			failed, len(extractors))
	}
	return nil
}
