package geocode

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transparencydata/payments-cli/internal/model"
)

// fakeProvider records calls and serves canned results per search string.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*Result
	err     error
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Available() bool { return true }

func (f *fakeProvider) Geocode(_ context.Context, q Query) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.SearchString())
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[q.SearchString()]; ok {
		return r, nil
	}
	return &Result{Matched: false}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func strPtr(s string) *string { return &s }

func TestClient_CacheShortCircuitsProvider(t *testing.T) {
	provider := &fakeProvider{results: map[string]*Result{
		"Hauptstr. 5, Berlin": {Lat: 52.5, Lng: 13.4, Matched: true},
	}}
	client := NewClient(provider, newTestCache(t))
	ctx := context.Background()
	q := Query{Address: "Hauptstr. 5", Location: "Berlin", Country: "DE"}

	first, err := client.Geocode(ctx, q)
	require.NoError(t, err)
	assert.True(t, first.Matched)

	second, err := client.Geocode(ctx, q)
	require.NoError(t, err)
	assert.True(t, second.Matched)
	assert.InDelta(t, first.Lat, second.Lat, 0.0001)

	assert.Equal(t, 1, provider.callCount())
}

func TestClient_NegativeResultNotRetried(t *testing.T) {
	provider := &fakeProvider{}
	client := NewClient(provider, newTestCache(t))
	ctx := context.Background()
	q := Query{Location: "Nirgendwo", Country: "DE"}

	for range 3 {
		result, err := client.Geocode(ctx, q)
		require.NoError(t, err)
		assert.False(t, result.Matched)
	}
	assert.Equal(t, 1, provider.callCount())
}

func TestClient_GeocodeRecords(t *testing.T) {
	provider := &fakeProvider{results: map[string]*Result{
		"Marienplatz 1, München": {Lat: 48.137, Lng: 11.575, Matched: true, Postcode: "80331"},
	}}
	client := NewClient(provider, newTestCache(t), WithConcurrency(2))

	existing := 50.0
	records := []*model.Record{
		{Address: strPtr("Marienplatz 1"), Location: strPtr("München"), Country: strPtr("DE")},
		{Location: strPtr("Nirgendwo"), Country: strPtr("DE")},
		// Already geocoded: must not be looked up again.
		{Location: strPtr("Hamburg"), Country: strPtr("DE"), Lat: &existing, Lng: &existing},
		// No address parts: skipped.
		{Country: strPtr("DE")},
	}

	matched, err := client.GeocodeRecords(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	require.NotNil(t, records[0].Lat)
	assert.InDelta(t, 48.137, *records[0].Lat, 0.0001)
	require.NotNil(t, records[0].Postcode)
	assert.Equal(t, "80331", *records[0].Postcode)

	assert.Nil(t, records[1].Lat)
	assert.InDelta(t, 50.0, *records[2].Lat, 0.0001)
	assert.Equal(t, 2, provider.callCount())
}

func TestClient_QuotaAbortsBatch(t *testing.T) {
	provider := &fakeProvider{err: ErrQuotaExceeded}
	client := NewClient(provider, newTestCache(t))

	records := []*model.Record{
		{Location: strPtr("Berlin"), Country: strPtr("DE")},
		{Location: strPtr("Hamburg"), Country: strPtr("DE")},
	}

	_, err := client.GeocodeRecords(context.Background(), records)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrQuotaExceeded))
}

func TestClient_PostcodeNotOverwritten(t *testing.T) {
	provider := &fakeProvider{results: map[string]*Result{
		"Berlin": {Lat: 52.52, Lng: 13.405, Matched: true, Postcode: "10117"},
	}}
	client := NewClient(provider, newTestCache(t))

	rec := &model.Record{Location: strPtr("Berlin"), Country: strPtr("DE"), Postcode: strPtr("10115")}
	_, err := client.GeocodeRecords(context.Background(), []*model.Record{rec})
	require.NoError(t, err)
	assert.Equal(t, "10115", *rec.Postcode)
}
