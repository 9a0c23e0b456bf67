package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barriodata/bcndb/internal/iodb"
	"github.com/barriodata/bcndb/internal/iofs"
	"github.com/barriodata/bcndb/internal/ioschema"
	"github.com/spf13/cobra"
)

func getCreateCmd() *cobra.Command {
	var force bool

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the warehouse schema and seed the dimensions",
		Long: `Create the star schema (neighborhoods, time_periods, four fact
tables and the etl_runs audit table) and seed the dimension tables:
the 73 Barcelona neighborhoods and the year/quarter time periods for
the configured horizon.

Safe to run repeatedly. With --force any existing tables are dropped
first.

Examples:
  bcndb create
  bcndb create --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(force)
		},
	}

	createCmd.Flags().BoolVarP(&force, "force", "f", false,
		"drop existing tables before creating the schema")

	return createCmd
}

func runCreate(force bool) error {
	ctx := context.Background()

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	hasTables, err := op.HasTables(ctx)
	if err != nil {
		return err
	}
	if hasTables {
		if !force {
			return fmt.Errorf(
				"database %s already has tables; use --force to recreate",
				cfg.Database.Database,
			)
		}
		slog.Warn("dropping existing tables",
			"database", cfg.Database.Database)
		if err := op.DropAllTables(ctx); err != nil {
			return err
		}
	}

	ineCodes, err := iofs.INECodes()
	if err != nil {
		return err
	}

	mgr := ioschema.New(cfg, ineCodes)
	if err := mgr.Create(ctx); err != nil {
		return err
	}

	fmt.Println("Schema created and dimensions seeded.")
	fmt.Println("Next steps:")
	fmt.Println("  - 'bcndb enrich' to fill neighborhood attributes")
	fmt.Println("  - 'bcndb run' to load the fact tables")
	return nil
}
