package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/transparencydata/payments-cli/internal/model"
)

// Client geocodes records through a provider, reading and writing the
// cache around every lookup.
type Client struct {
	provider    Provider
	cache       *Cache
	concurrency int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithConcurrency sets the max parallel provider calls for record batches.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewClient creates a caching geocode client.
func NewClient(provider Provider, cache *Cache, opts ...ClientOption) *Client {
	c := &Client{
		provider:    provider,
		cache:       cache,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a single query, consulting the cache first. Both
// matches and misses are cached. Quota errors pass through unwrapped so
// callers can abort the batch.
func (c *Client) Geocode(ctx context.Context, q Query) (*Result, error) {
	if q.SearchString() == "" {
		return &Result{Matched: false}, nil
	}

	if c.cache != nil {
		cached, found, err := c.cache.Get(ctx, q)
		if err != nil {
			return nil, err
		}
		if found {
			return cached, nil
		}
	}

	result, err := c.provider.Geocode(ctx, q)
	if err != nil {
		if eris.Is(err, ErrQuotaExceeded) {
			return nil, err
		}
		return nil, eris.Wrapf(err, "geocode: %s lookup", c.provider.Name())
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, q, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GeocodeRecords resolves coordinates for every record that has an
// address or location but no coordinates yet, writing lat/lng back in
// place and backfilling missing postcodes from the provider response.
// A quota error aborts the whole batch; cached results are kept.
func (c *Client) GeocodeRecords(ctx context.Context, records []*model.Record) (int, error) {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)

	matched := make([]bool, len(records))
	for i, rec := range records {
		if rec.Lat != nil && rec.Lng != nil {
			continue
		}
		q := queryFor(rec)
		if q.SearchString() == "" {
			continue
		}

		eg.Go(func() error {
			result, err := c.Geocode(gCtx, q)
			if err != nil {
				return err
			}
			if !result.Matched {
				zap.L().Debug("geocode: no match",
					zap.String("search", q.SearchString()),
					zap.String("country", q.Country),
				)
				return nil
			}
			lat, lng := result.Lat, result.Lng
			rec.Lat, rec.Lng = &lat, &lng
			if rec.Postcode == nil && result.Postcode != "" {
				pc := result.Postcode
				rec.Postcode = &pc
			}
			matched[i] = true
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		if eris.Is(err, ErrQuotaExceeded) {
			return 0, err
		}
		return 0, eris.Wrap(err, "geocode: batch")
	}

	var n int
	for _, m := range matched {
		if m {
			n++
		}
	}
	return n, nil
}

// queryFor builds the provider query from a record's address fields.
func queryFor(rec *model.Record) Query {
	q := Query{}
	if rec.Address != nil {
		q.Address = *rec.Address
	}
	if rec.Location != nil {
		q.Location = *rec.Location
	}
	if rec.Country != nil {
		q.Country = *rec.Country
	}
	return q
}
