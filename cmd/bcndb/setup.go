package main

import (
	"fmt"
	"log/slog"

	"github.com/barriodata/bcndb/internal/ioextract"
	"github.com/barriodata/bcndb/internal/iofs"
	"github.com/barriodata/bcndb/internal/iomanifest"
	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/manifest"
	"github.com/barriodata/bcndb/pkg/sources"
)

// loadSources reads sources.yaml and logs any non-fatal warnings.
func loadSources() (*sources.SourcesConfig, error) {
	sc, err := iofs.NewSourcesLoader(cfg.HomeDir).Load()
	if err != nil {
		return nil, err
	}
	for _, w := range sc.Warnings {
		slog.Warn("sources.yaml",
			"source", w.Source,
			"field", w.Field,
			"message", w.Message,
			"suggestion", w.Suggestion,
		)
	}
	return sc, nil
}

// selectedSources resolves the --sources flag against the
// configuration. Unknown names are an error, not a silent skip.
func selectedSources(
	sc *sources.SourcesConfig,
) ([]sources.SourceConfig, error) {
	names := cfg.Extract.SourceNames
	if len(names) == 0 {
		return sc.Sources, nil
	}

	byName := make(map[string]sources.SourceConfig, len(sc.Sources))
	for _, s := range sc.Sources {
		byName[s.Name] = s
	}

	var res []sources.SourceConfig
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		res = append(res, s)
	}
	return res, nil
}

func openLedger() (manifest.Ledger, error) {
	return iomanifest.New(config.ManifestPath(cfg.HomeDir))
}

func buildExtractors(
	srcs []sources.SourceConfig,
	ledger manifest.Ledger,
) []bcndb.Extractor {
	res := make([]bcndb.Extractor, 0, len(srcs))
	for _, src := range srcs {
		res = append(res, ioextract.New(
			src, cfg.Extract, ledger, config.RawDir(cfg.HomeDir)))
	}
	return res
}
