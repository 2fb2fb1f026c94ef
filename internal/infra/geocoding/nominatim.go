// Package geocoding resolves listing addresses through a Nominatim-compatible
// search endpoint.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"wanderlust/internal/app/policies"
)

// Nominatim calls GET {Endpoint}/search?format=jsonv2&limit=1&q=... and takes
// the first hit. Public instances allow one request per second.
type Nominatim struct {
	Client    *http.Client
	Endpoint  string
	UserAgent string
	Limiter   *rate.Limiter
	Logger    *slog.Logger
}

func NewNominatim(endpoint, userAgent string, logger *slog.Logger) *Nominatim {
	return &Nominatim{
		Client:    &http.Client{Timeout: 5 * time.Second},
		Endpoint:  strings.TrimRight(endpoint, "/"),
		UserAgent: userAgent,
		Limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		Logger:    logger,
	}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) Geocode(ctx context.Context, location, country string) (orb.Point, bool, error) {
	var zero orb.Point
	if n == nil || n.Client == nil || n.Endpoint == "" {
		return zero, false, errors.New("geocoding: client not configured")
	}
	query := strings.Trim(strings.TrimSpace(location)+", "+strings.TrimSpace(country), ", ")
	if query == "" {
		return zero, false, nil
	}
	if n.Limiter != nil {
		if err := n.Limiter.Wait(ctx); err != nil {
			return zero, false, err
		}
	}

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("q", query)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return zero, false, err
	}
	request.Header.Set("Accept", "application/json")
	if n.UserAgent != "" {
		request.Header.Set("User-Agent", n.UserAgent)
	}

	resp, err := n.Client.Do(request)
	if err != nil {
		return zero, false, fmt.Errorf("geocoding: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return zero, false, fmt.Errorf("geocoding: status %d: %s", resp.StatusCode, string(snippet))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return zero, false, fmt.Errorf("geocoding: decode: %w", err)
	}
	if len(places) == 0 {
		n.logger().Debug("no geocoding match", "query", query)
		return zero, false, nil
	}
	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return zero, false, fmt.Errorf("geocoding: bad coordinates %q,%q", places[0].Lat, places[0].Lon)
	}
	return orb.Point{lon, lat}, true, nil
}

func (n *Nominatim) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

var _ policies.Geocoder = (*Nominatim)(nil)
