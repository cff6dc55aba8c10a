// Package geocode resolves disclosure addresses to coordinates through
// a caching client over pluggable provider backends.
package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrQuotaExceeded is returned when the upstream service rejects a
// request for quota reasons. It is fatal for the whole batch: partially
// geocoded data would bias proximity matching in ways that are hard to
// detect downstream.
var ErrQuotaExceeded = eris.New("geocode: query quota exceeded")

// Query is one geocoding request. Country narrows the provider search
// and is part of the cache key.
type Query struct {
	Address  string
	Location string
	Country  string
}

// SearchString joins the non-empty address parts into the string sent
// to the provider and used as the cache key.
func (q Query) SearchString() string {
	var parts []string
	if s := strings.TrimSpace(q.Address); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(q.Location); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// Result holds one geocoding outcome. Unmatched lookups carry
// Matched=false and are cached so the miss is not retried.
type Result struct {
	Lat     float64
	Lng     float64
	Matched bool

	// Postcode is extracted from the provider response when the source
	// record lacks one.
	Postcode string

	// Payload preserves the raw provider result for later backfills.
	Payload []byte
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, q Query) (*Result, error)
	Available() bool
}
