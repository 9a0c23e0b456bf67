package main

import (
	"context"
	"fmt"

	"github.com/barriodata/bcndb/internal/iofs"
	"github.com/barriodata/bcndb/internal/ioschema"
	"github.com/spf13/cobra"
)

func getEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fill missing neighborhood attributes",
		Long: `Fill missing attributes of the neighborhood dimension:

  - INE codes from the bundled reference mapping
  - centroid coordinates and area derived from stored boundary
    polygons

Only attributes that are still NULL are written; values set by hand
or by earlier runs are never overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich()
		},
	}
}

func runEnrich() error {
	ctx := context.Background()

	ineCodes, err := iofs.INECodes()
	if err != nil {
		return err
	}

	mgr := ioschema.New(cfg, ineCodes)
	if err := mgr.Enrich(ctx); err != nil {
		return err
	}

	fmt.Println("Neighborhood dimension enriched.")
	return nil
}
