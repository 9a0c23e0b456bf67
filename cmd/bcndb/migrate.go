package main

import (
	"context"
	"fmt"

	"github.com/barriodata/bcndb/internal/iofs"
	"github.com/barriodata/bcndb/internal/ioschema"
	"github.com/spf13/cobra"
)

func getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Update the warehouse schema to the latest version",
		Long: `Apply schema changes without touching dimension or fact data.
Run after upgrading bcndb.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	ctx := context.Background()

	ineCodes, err := iofs.INECodes()
	if err != nil {
		return err
	}

	mgr := ioschema.New(cfg, ineCodes)
	if err := mgr.Migrate(ctx); err != nil {
		return err
	}

	fmt.Println("Schema is up to date.")
	return nil
}
