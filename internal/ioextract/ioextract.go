// Package ioextract implements the source extractors: HTTP retrieval
// with per-source rate limiting, retry with backoff, ordered strategy
// fallback, raw payload persistence and manifest bookkeeping.
//
// Every extraction attempt leaves a manifest entry. Successful
// payloads are persisted under the raw cache directory and replayed
// on re-runs with identical parameters, so a pipeline re-run is
// idempotent and cheap unless --refresh forces the network.
package ioextract

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barriodata/bcndb/pkg/bcndb"
	"github.com/barriodata/bcndb/pkg/config"
	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/manifest"
	"github.com/barriodata/bcndb/pkg/sources"
	"golang.org/x/time/rate"
)

type extractor struct {
	src     sources.SourceConfig
	strats  []strategy
	ledger  manifest.Ledger
	rawDir  string
	refresh bool
}

// New builds the extractor for one configured source. The fallback
// chain order comes from sources.yaml; all strategies of the source
// share one rate limiter so the source's HTTP budget holds across
// fallbacks.
func New(
	src sources.SourceConfig,
	cfg config.ExtractConfig,
	ledger manifest.Ledger,
	rawDir string,
) bcndb.Extractor {
	delay := cfg.RateDelayMs
	if src.RateDelayMs > 0 {
		delay = src.RateDelayMs
	}
	limiter := rate.NewLimiter(
		rate.Every(time.Duration(delay)*time.Millisecond), 1)

	client := &http.Client{
		Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
	}

	var strats []strategy
	for _, st := range src.Strategies {
		b := base{
			src:        src,
			cfg:        st,
			client:     client,
			limiter:    limiter,
			maxRetries: cfg.MaxRetries,
		}
		switch st.Kind {
		case "opendata":
			strats = append(strats, &opendataStrategy{base: b})
		case "aggregate":
			strats = append(strats, &aggregateStrategy{base: b})
		case "csv":
			strats = append(strats, &csvStrategy{base: b})
		default:
			// sources.Validate rejects unknown kinds before we get here
			slog.Warn("ignoring strategy of unknown kind",
				"source", src.Name, "kind", st.Kind)
		}
	}

	return &extractor{
		src:     src,
		strats:  strats,
		ledger:  ledger,
		rawDir:  rawDir,
		refresh: cfg.Refresh,
	}
}

func (e *extractor) Source() string { return e.src.Name }

func (e *extractor) Extract(
	ctx context.Context,
	p extract.Params,
) (extract.Result, error) {
	hash := p.Hash()

	if !e.refresh {
		if res, ok := e.replay(ctx, p, hash); ok {
			return res, nil
		}
	}

	stList := make([]extract.Strategy, len(e.strats))
	for i, st := range e.strats {
		stList[i] = st
	}

	res, err := extract.Run(ctx, p, stList)
	if err != nil {
		if aErr := e.appendFailure(ctx, p, hash, res.Meta.Attempts); aErr != nil {
			return res, aErr
		}
		return res, err
	}

	used := e.strategyNamed(res.Meta.StrategyUsed)
	outPath, pErr := e.persist(hash, used)
	if pErr != nil {
		return res, pErr
	}

	_, aErr := e.ledger.Append(ctx, manifest.Entry{
		Source:     e.src.Name,
		ParamsHash: hash,
		ParamsJSON: paramsJSON(p),
		Strategy:   res.Meta.StrategyUsed,
		Success:    true,
		OutputPath: outPath,
	})
	if aErr != nil {
		return res, aErr
	}

	slog.Debug("extracted",
		"source", e.src.Name,
		"strategy", res.Meta.StrategyUsed,
		"records", len(res.Records),
		"raw", outPath,
	)
	return res, nil
}

// replay serves an extraction from the raw cache when the manifest
// has a successful entry for identical parameters. Any replay problem
// (missing file, stale payload shape) falls back to the network.
func (e *extractor) replay(
	ctx context.Context,
	p extract.Params,
	hash string,
) (extract.Result, bool) {
	entry, err := e.ledger.LatestSuccess(ctx, e.src.Name, hash)
	if err != nil || entry == nil {
		return extract.Result{}, false
	}

	st := e.strategyNamed(entry.Strategy)
	if st == nil {
		return extract.Result{}, false
	}

	data, err := os.ReadFile(entry.OutputPath)
	if err != nil {
		slog.Warn("raw cache file unreadable, re-extracting",
			"source", e.src.Name, "path", entry.OutputPath,
			"error", err)
		return extract.Result{}, false
	}

	recs, err := st.parse(data, p, entry.CreatedAt)
	if err != nil || len(recs) == 0 {
		slog.Warn("raw cache replay failed, re-extracting",
			"source", e.src.Name, "path", entry.OutputPath,
			"error", err)
		return extract.Result{}, false
	}

	slog.Debug("replayed from raw cache",
		"source", e.src.Name, "records", len(recs))
	return extract.Result{
		Records: recs,
		Meta: extract.Meta{
			StrategyUsed: entry.Strategy,
			FromCache:    true,
		},
	}, true
}

func (e *extractor) persist(
	hash string,
	st strategy,
) (string, error) {
	if st == nil {
		return "", nil
	}

	dir := filepath.Join(e.rawDir, e.src.Name, hash)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", PersistError(e.src.Name, dir, err)
	}

	name := time.Now().UTC().Format("20060102T150405Z") + "." + st.ext()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, st.payload(), 0644); err != nil {
		return "", PersistError(e.src.Name, path, err)
	}
	return path, nil
}

func (e *extractor) appendFailure(
	ctx context.Context,
	p extract.Params,
	hash string,
	attempts []extract.Attempt,
) error {
	var lastStrategy string
	var reasons []string
	for _, a := range attempts {
		lastStrategy = a.Strategy
		reasons = append(reasons,
			a.Strategy+" ("+a.Kind.String()+"): "+a.Reason)
	}

	_, err := e.ledger.Append(ctx, manifest.Entry{
		Source:     e.src.Name,
		ParamsHash: hash,
		ParamsJSON: paramsJSON(p),
		Strategy:   lastStrategy,
		Success:    false,
		Error:      strings.Join(reasons, "; "),
	})
	return err
}

func (e *extractor) strategyNamed(name string) strategy {
	for _, st := range e.strats {
		if st.Name() == name {
			return st
		}
	}
	return nil
}

func paramsJSON(p extract.Params) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// IsExhausted reports whether err means every fallback strategy of a
// source failed. The orchestrator maps this to "zero rows from the
// source" instead of failing the run.
func IsExhausted(err error) bool {
	var e *extract.ExhaustedError
	return errors.As(err, &e)
}
