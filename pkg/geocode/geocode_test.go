package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/publicartatlas/artimport/internal/resilience"
)

const nominatimBody = `{
	"display_name": "Stanley Park, Vancouver, British Columbia, Canada",
	"address": {"country": "Canada", "state": "British Columbia", "city": "Vancouver"}
}`

func TestNominatimReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "49.300000", r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(nominatimBody))
	}))
	defer srv.Close()

	c := NewNominatim("artimport-test", WithBaseURL(srv.URL), WithRateLimit(1000))
	got, err := c.ReverseGeocode(context.Background(), 49.3, -123.14)
	require.NoError(t, err)
	assert.True(t, got.Matched)
	assert.Equal(t, "Canada", got.Country)
	assert.Equal(t, "Vancouver", got.City)
}

func TestWithRateLimitTakesRequestsPerSec(t *testing.T) {
	c := NewNominatim("artimport-test", WithRateLimit(2.5))
	assert.Equal(t, rate.Limit(2.5), c.limiter.Limit())
}

func TestNominatimUnmatched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer srv.Close()

	c := NewNominatim("artimport-test", WithBaseURL(srv.URL), WithRateLimit(1000))
	got, err := c.ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.False(t, got.Matched)
}

func TestNominatimTransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewNominatim("artimport-test", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.ReverseGeocode(context.Background(), 49.3, -123.14)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestNominatimTownFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "x", "address": {"country": "Canada", "town": "Squamish"}}`))
	}))
	defer srv.Close()

	c := NewNominatim("artimport-test", WithBaseURL(srv.URL), WithRateLimit(1000))
	got, err := c.ReverseGeocode(context.Background(), 49.7, -123.15)
	require.NoError(t, err)
	assert.Equal(t, "Squamish", got.City)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(filepath.Join(t.TempDir(), "geocode.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	miss, err := cache.Get(ctx, 49.3, -123.14)
	require.NoError(t, err)
	assert.Nil(t, miss)

	want := &Result{DisplayName: "Stanley Park", Country: "Canada", City: "Vancouver", Matched: true}
	require.NoError(t, cache.Put(ctx, 49.3, -123.14, want))

	got, err := cache.Get(ctx, 49.3, -123.14)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Nearby-but-identical after rounding hits the same entry.
	got, err = cache.Get(ctx, 49.300001, -123.140001)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCacheStoresNonMatches(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, 0, 0, &Result{Matched: false}))
	got, err := cache.Get(ctx, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Matched)
}

func TestCachedClientShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(nominatimBody))
	}))
	defer srv.Close()

	client := NewCachedClient(
		NewNominatim("artimport-test", WithBaseURL(srv.URL), WithRateLimit(1000)),
		newTestCache(t),
	)

	for range 3 {
		got, err := client.ReverseGeocode(context.Background(), 49.3, -123.14)
		require.NoError(t, err)
		assert.True(t, got.Matched)
	}
	assert.Equal(t, int32(1), calls.Load())
}
