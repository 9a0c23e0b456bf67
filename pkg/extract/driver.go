package extract

import (
	"context"
	"errors"
)

// Strategy is one retrieval method for a source. Implementations live
// in internal/ioextract; retry-with-backoff for transient failures
// happens inside Fetch, so the driver only sequences strategies.
type Strategy interface {
	// Name identifies the strategy in manifests and logs.
	Name() string

	// Fetch retrieves and normalizes records for the given
	// parameters. Failures are reported as *StrategyError.
	Fetch(ctx context.Context, p Params) ([]Record, error)
}

// Run tries the strategies strictly in order, stopping at the first
// success. Fallback is about availability only: once a strategy
// succeeds no further strategies are consulted. When every strategy
// fails, Run returns an *ExhaustedError carrying the ordered attempt
// list.
func Run(
	ctx context.Context,
	p Params,
	strategies []Strategy,
) (Result, error) {
	var attempts []Attempt

	for _, st := range strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{
				Strategy: st.Name(),
				Kind:     Permanent,
				Reason:   err.Error(),
			})
			break
		}

		recs, err := st.Fetch(ctx, p)
		if err == nil && len(recs) == 0 {
			err = NewEmptyError(st.Name())
		}
		if err == nil {
			attempts = append(attempts, Attempt{Strategy: st.Name()})
			return Result{
				Records: recs,
				Meta: Meta{
					StrategyUsed: st.Name(),
					Attempts:     attempts,
				},
			}, nil
		}

		var sErr *StrategyError
		if !errors.As(err, &sErr) {
			sErr = NewPermanentError(st.Name(), err)
		}
		attempts = append(attempts, Attempt{
			Strategy: st.Name(),
			Kind:     sErr.Kind,
			Reason:   sErr.Err.Error(),
		})
	}

	return Result{Meta: Meta{Attempts: attempts}},
		&ExhaustedError{Source: p.Source, Attempts: attempts}
}
