// Package geocode provides a Nominatim (OpenStreetMap) client used to
// resolve donor and ONG addresses into coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Common errors for geocoding operations.
var (
	ErrAddressNotFound = errors.New("address not found")
)

// requestTimeout bounds one Nominatim round trip. The public instance is
// rate limited and occasionally slow; callers treat failures as
// best-effort.
const requestTimeout = 10 * time.Second

// Result is a resolved coordinate pair.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves a free-form address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, fullAddress string) (*Result, error)
}

// Client is a Nominatim search API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a Nominatim client. The Nominatim usage policy
// requires an identifying User-Agent on every request.
func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// nominatimPlace is one entry of the Nominatim search response.
// Coordinates arrive as strings.
type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves fullAddress via the Nominatim search endpoint,
// returning the best match.
func (c *Client) Geocode(ctx context.Context, fullAddress string) (*Result, error) {
	params := url.Values{}
	params.Set("q", fullAddress)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach geocoding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return nil, ErrAddressNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", places[0].Lon, err)
	}

	return &Result{Latitude: lat, Longitude: lon}, nil
}
