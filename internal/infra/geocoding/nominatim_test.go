package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeReturnsFirstMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Lake Bled, Slovenia", r.URL.Query().Get("q"))
		assert.Equal(t, "wanderlust-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"46.3625","lon":"14.0938"},{"lat":"0","lon":"0"}]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "wanderlust-test", nil)
	g.Limiter = nil
	point, found, err := g.Geocode(context.Background(), "Lake Bled", "Slovenia")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 14.0938, point.Lon(), 1e-9)
	assert.InDelta(t, 46.3625, point.Lat(), 1e-9)
}

func TestGeocodeNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "", nil)
	_, found, err := g.Geocode(context.Background(), "Nowhere", "Atlantis")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGeocodeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "", nil)
	_, found, err := g.Geocode(context.Background(), "Paris", "France")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "429")
}

func TestGeocodeUnconfigured(t *testing.T) {
	var g *Nominatim
	_, _, err := g.Geocode(context.Background(), "Paris", "France")
	assert.Error(t, err)
}
