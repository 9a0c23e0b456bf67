package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/barriodata/bcndb/pkg/config"
	"github.com/spf13/cobra"
)

// parseYears parses the --years flag: a single year ("2021") or an
// inclusive range ("2015-2025").
func parseYears(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("empty year range")
	}

	parts := strings.SplitN(s, "-", 2)
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", parts[0])
	}

	to := from
	if len(parts) == 2 {
		to, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", parts[1])
		}
	}

	if from > to {
		return 0, 0, fmt.Errorf("year range %d-%d is inverted", from, to)
	}
	return from, to, nil
}

// extractionOpts converts the shared extraction flags into config
// options. Only flags the user actually set are applied.
func extractionOpts(
	cmd *cobra.Command,
	years string,
	sourceNames []string,
	refresh bool,
) ([]config.Option, error) {
	var opts []config.Option

	if cmd.Flags().Changed("years") {
		from, to, err := parseYears(years)
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.OptExtractYears(from, to))
	}
	if cmd.Flags().Changed("sources") {
		opts = append(opts, config.OptExtractSourceNames(sourceNames))
	}
	if cmd.Flags().Changed("refresh") {
		opts = append(opts, config.OptExtractRefresh(refresh))
	}

	return opts, nil
}

func addExtractionFlags(
	cmd *cobra.Command,
	years *string,
	sourceNames *[]string,
	refresh *bool,
) {
	cmd.Flags().StringVarP(years, "years", "y", "",
		"year or inclusive range to extract, e.g. 2021 or 2015-2025")
	cmd.Flags().StringSliceVarP(sourceNames, "sources", "s", nil,
		"source names to run (empty = all configured sources)")
	cmd.Flags().BoolVarP(refresh, "refresh", "r", false,
		"bypass the raw cache and re-extract from the network")
}
