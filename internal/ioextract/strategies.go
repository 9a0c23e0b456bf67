package ioextract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/barriodata/bcndb/pkg/extract"
	"github.com/barriodata/bcndb/pkg/sources"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ckanPageSize is the datastore_search page size. Open Data BCN caps
// responses at 32000 rows; paging at 1000 keeps payloads small.
const ckanPageSize = 1000

// strategy extends the pure fallback contract with the pieces the
// extractor needs for raw persistence and cache replay: the payload
// of the last successful fetch, its file extension, and a pure parser
// that turns a persisted payload back into records.
type strategy interface {
	extract.Strategy
	payload() []byte
	ext() string
	parse(data []byte, p extract.Params, at time.Time) ([]extract.Record, error)
}

// base carries what every strategy kind shares: its configuration,
// the per-source rate limiter and the retry budget.
type base struct {
	src        sources.SourceConfig
	cfg        sources.StrategyConfig
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	last       []byte
}

func (b *base) Name() string    { return b.cfg.Kind }
func (b *base) payload() []byte { return b.last }

// get performs one rate-limited GET, retrying transient failures with
// exponential backoff. Permanent failures and context cancellation
// abandon the strategy immediately.
func (b *base) get(ctx context.Context, u string) ([]byte, error) {
	name := b.cfg.Kind
	var body []byte

	op := func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(extract.NewPermanentError(name, err))
		}

		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(extract.NewPermanentError(name, err))
		}

		resp, err := b.client.Do(req)
		if err != nil {
			if extract.ClassifyError(err) == extract.Transient {
				return extract.NewTransientError(name, err)
			}
			return backoff.Permanent(extract.NewPermanentError(name, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := fmt.Errorf("http %d from %s",
				resp.StatusCode, u)
			if extract.ClassifyHTTPStatus(resp.StatusCode) ==
				extract.Transient {
				return extract.NewTransientError(name, statusErr)
			}
			return backoff.Permanent(
				extract.NewPermanentError(name, statusErr))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return extract.NewTransientError(name, err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(b.maxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ckanResponse is the CKAN datastore_search envelope.
type ckanResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Records []map[string]any `json:"records"`
		Total   int              `json:"total"`
	} `json:"result"`
}

// opendataStrategy pages through a CKAN datastore resource.
type opendataStrategy struct {
	base
}

func (s *opendataStrategy) Fetch(
	ctx context.Context,
	p extract.Params,
) ([]extract.Record, error) {
	var all []map[string]any
	offset := 0

	for {
		u := fmt.Sprintf("%s?resource_id=%s&limit=%d&offset=%d",
			s.cfg.URL, url.QueryEscape(s.cfg.ResourceID),
			ckanPageSize, offset)

		body, err := s.get(ctx, u)
		if err != nil {
			return nil, err
		}

		var page ckanResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, extract.NewPermanentError(s.Name(),
				fmt.Errorf("malformed datastore response: %w", err))
		}
		if !page.Success {
			return nil, extract.NewPermanentError(s.Name(),
				fmt.Errorf("datastore_search reported failure"))
		}

		all = append(all, page.Result.Records...)
		offset += len(page.Result.Records)
		if len(page.Result.Records) == 0 ||
			offset >= page.Result.Total {
			break
		}
	}

	data, err := json.Marshal(all)
	if err != nil {
		return nil, extract.NewPermanentError(s.Name(), err)
	}
	s.last = data

	return s.parse(data, p, time.Now())
}

func (s *opendataStrategy) ext() string { return "json" }

func (s *opendataStrategy) parse(
	data []byte, p extract.Params, at time.Time,
) ([]extract.Record, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, extract.NewPermanentError(s.Name(), err)
	}
	return rowsToRecords(s.src, s.cfg, rows, p, at)
}

// aggregateStrategy queries the aggregated statistics endpoint one
// year at a time, using the source's year column as a server-side
// filter.
type aggregateStrategy struct {
	base
}

func (s *aggregateStrategy) Fetch(
	ctx context.Context,
	p extract.Params,
) ([]extract.Record, error) {
	yearCol := normalizedColumns(s.cfg.FieldMap)["year"]

	var years []int
	if p.YearFrom > 0 && yearCol != "" {
		for y := p.YearFrom; y <= max(p.YearFrom, p.YearTo); y++ {
			years = append(years, y)
		}
	} else {
		years = []int{0}
	}

	var all []map[string]any
	for _, y := range years {
		u := fmt.Sprintf("%s?resource_id=%s&limit=32000",
			s.cfg.URL, url.QueryEscape(s.cfg.ResourceID))
		if y > 0 {
			filter := fmt.Sprintf(`{"%s":"%d"}`, yearCol, y)
			u += "&filters=" + url.QueryEscape(filter)
		}

		body, err := s.get(ctx, u)
		if err != nil {
			return nil, err
		}

		var page ckanResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, extract.NewPermanentError(s.Name(),
				fmt.Errorf("malformed datastore response: %w", err))
		}
		if !page.Success {
			return nil, extract.NewPermanentError(s.Name(),
				fmt.Errorf("datastore_search reported failure"))
		}
		all = append(all, page.Result.Records...)
	}

	data, err := json.Marshal(all)
	if err != nil {
		return nil, extract.NewPermanentError(s.Name(), err)
	}
	s.last = data

	return s.parse(data, p, time.Now())
}

func (s *aggregateStrategy) ext() string { return "json" }

func (s *aggregateStrategy) parse(
	data []byte, p extract.Params, at time.Time,
) ([]extract.Record, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, extract.NewPermanentError(s.Name(), err)
	}
	return rowsToRecords(s.src, s.cfg, rows, p, at)
}

// csvStrategy downloads a published CSV resource. Last resort in
// every chain: no server-side filtering, the whole file comes over.
type csvStrategy struct {
	base
}

func (s *csvStrategy) Fetch(
	ctx context.Context,
	p extract.Params,
) ([]extract.Record, error) {
	body, err := s.get(ctx, s.cfg.URL)
	if err != nil {
		return nil, err
	}
	s.last = body
	return s.parse(body, p, time.Now())
}

func (s *csvStrategy) ext() string { return "csv" }

func (s *csvStrategy) parse(
	data []byte, p extract.Params, at time.Time,
) ([]extract.Record, error) {
	return parseCSV(s.src, s.cfg, data, p, at)
}
