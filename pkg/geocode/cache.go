package geocode

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores geocoding results keyed by (country, search string) so
// repeated runs never repeat a lookup. Non-matches are cached too.
type Cache struct {
	db *sql.DB
}

// NewCache wraps the given database handle. Call Migrate before use.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Migrate creates the cache table if it does not exist.
func (c *Cache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			country   TEXT NOT NULL,
			search    TEXT NOT NULL,
			lat       REAL,
			lng       REAL,
			matched   INTEGER NOT NULL,
			postcode  TEXT,
			payload   BLOB,
			cached_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (country, search)
		)`)
	if err != nil {
		return eris.Wrap(err, "geocode: migrate cache")
	}
	return nil
}

// cacheKey normalizes the search string used as part of the key.
func cacheKey(q Query) (country, search string) {
	return strings.ToUpper(strings.TrimSpace(q.Country)),
		strings.ToLower(q.SearchString())
}

// Get looks up a cached result. The second return value reports
// whether the query was found, matched or not.
func (c *Cache) Get(ctx context.Context, q Query) (*Result, bool, error) {
	country, search := cacheKey(q)

	var lat, lng sql.NullFloat64
	var matched bool
	var postcode sql.NullString
	var payload []byte

	row := c.db.QueryRowContext(ctx,
		`SELECT lat, lng, matched, postcode, payload
		 FROM geocode_cache WHERE country = ? AND search = ?`,
		country, search)
	if err := row.Scan(&lat, &lng, &matched, &postcode, &payload); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "geocode: read cache")
	}

	r := &Result{Matched: matched, Payload: payload}
	if lat.Valid {
		r.Lat = lat.Float64
	}
	if lng.Valid {
		r.Lng = lng.Float64
	}
	if postcode.Valid {
		r.Postcode = postcode.String
	}

	zap.L().Debug("geocode cache hit",
		zap.String("search", search),
		zap.Bool("matched", matched),
	)
	return r, true, nil
}

// Put stores a result, replacing any previous entry for the query.
func (c *Cache) Put(ctx context.Context, q Query, r *Result) error {
	country, search := cacheKey(q)

	var lat, lng any
	if r.Matched {
		lat, lng = r.Lat, r.Lng
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (country, search, lat, lng, matched, postcode, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (country, search) DO UPDATE SET
			lat = excluded.lat,
			lng = excluded.lng,
			matched = excluded.matched,
			postcode = excluded.postcode,
			payload = excluded.payload,
			cached_at = datetime('now')`,
		country, search, lat, lng, r.Matched, nilIfEmpty(r.Postcode), r.Payload,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}

// nilIfEmpty returns nil for empty strings so NULL is stored.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
