package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// ErrorKind classifies a strategy failure. The kind decides retry
// behavior: transient errors are retried with backoff within the
// strategy, permanent and empty ones abandon the strategy immediately
// and trigger fallback.
type ErrorKind int

const (
	// Transient covers timeouts, connection failures, 5xx and 429
	// responses. Worth retrying within the same strategy.
	Transient ErrorKind = iota

	// Permanent covers 4xx (except 429), auth failures and schema
	// mismatches. The strategy is abandoned without retry.
	Permanent

	// Empty means the strategy completed but produced no usable rows.
	Empty
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// StrategyError is the tagged failure of one strategy attempt.
type StrategyError struct {
	Strategy string
	Kind     ErrorKind
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s (%s): %v", e.Strategy, e.Kind, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// NewTransientError tags err as retriable within the strategy.
func NewTransientError(strategy string, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, Kind: Transient, Err: err}
}

// NewPermanentError tags err as non-retriable; fallback proceeds.
func NewPermanentError(strategy string, err error) *StrategyError {
	return &StrategyError{Strategy: strategy, Kind: Permanent, Err: err}
}

// NewEmptyError reports a strategy that completed without rows.
func NewEmptyError(strategy string) *StrategyError {
	return &StrategyError{
		Strategy: strategy,
		Kind:     Empty,
		Err:      errors.New("no usable rows in response"),
	}
}

// NewSchemaMismatchError reports a payload missing required columns.
// Schema mismatch is permanent: retrying the same endpoint cannot fix
// the payload shape.
func NewSchemaMismatchError(strategy, missing string) *StrategyError {
	return &StrategyError{
		Strategy: strategy,
		Kind:     Permanent,
		Err:      fmt.Errorf("schema mismatch: required column %q absent", missing),
	}
}

// ClassifyHTTPStatus maps an HTTP status code to an ErrorKind.
// 429 and all 5xx are transient; every other non-2xx is permanent.
func ClassifyHTTPStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return Transient
	case status >= 500:
		return Transient
	default:
		return Permanent
	}
}

// ClassifyError maps a transport-level error to an ErrorKind.
// Timeouts and connection problems are transient; a cancelled context
// is permanent for the attempt (the caller is shutting down).
func ClassifyError(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return Permanent
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	return Transient
}

// ExhaustedError reports that every strategy of a source failed.
// It carries the per-strategy attempt list for the manifest and the
// run summary. The orchestrator treats it as "this source contributes
// zero rows", never as a run-level failure.
type ExhaustedError struct {
	Source   string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("source %s: all %d strategies exhausted",
		e.Source, len(e.Attempts))
}
