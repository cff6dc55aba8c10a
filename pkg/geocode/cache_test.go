package geocode

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := NewCache(db)
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func TestCache_MissThenHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	q := Query{Address: "Marienplatz 1", Location: "München", Country: "DE"}

	_, found, err := c.Get(ctx, q)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, q, &Result{
		Lat: 48.137, Lng: 11.575, Matched: true, Postcode: "80331",
	}))

	cached, found, err := c.Get(ctx, q)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.Matched)
	assert.InDelta(t, 48.137, cached.Lat, 0.0001)
	assert.InDelta(t, 11.575, cached.Lng, 0.0001)
	assert.Equal(t, "80331", cached.Postcode)
}

func TestCache_NegativeResultCached(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	q := Query{Location: "Nirgendwo", Country: "DE"}

	require.NoError(t, c.Put(ctx, q, &Result{Matched: false}))

	cached, found, err := c.Get(ctx, q)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, cached.Matched)
}

func TestCache_KeyNormalization(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx,
		Query{Location: "Berlin", Country: "de"},
		&Result{Lat: 52.52, Lng: 13.405, Matched: true}))

	// Country case and search case fold into the same key.
	cached, found, err := c.Get(ctx, Query{Location: "BERLIN", Country: "DE"})
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.Matched)

	// A different country is a different key.
	_, found, err = c.Get(ctx, Query{Location: "Berlin", Country: "AT"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_PutReplaces(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	q := Query{Location: "Wien", Country: "AT"}

	require.NoError(t, c.Put(ctx, q, &Result{Matched: false}))
	require.NoError(t, c.Put(ctx, q, &Result{Lat: 48.208, Lng: 16.373, Matched: true}))

	cached, found, err := c.Get(ctx, q)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.Matched)
	assert.InDelta(t, 48.208, cached.Lat, 0.0001)
}
