package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spec-kit/sundown-service/internal/config"
)

// ErrNotFound indicates the geocoder returned no match for the query.
var ErrNotFound = errors.New("nominatim: no results for query")

// Client resolves free-text addresses against a Nominatim endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient builds a geocoder client from config.
func NewClient(cfg config.NominatimConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout()},
	}
}

// Resolve geocodes free text to a coordinate pair and the provider's
// canonical display name.
func (c *Client) Resolve(ctx context.Context, query string) (lat, lon float64, label string, err error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, "", err
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, "", fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, "", fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, "", fmt.Errorf("nominatim decode: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, "", ErrNotFound
	}

	first := results[0]
	lat, err = strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("nominatim latitude %q: %w", first.Lat, err)
	}
	lon, err = strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("nominatim longitude %q: %w", first.Lon, err)
	}
	return lat, lon, first.DisplayName, nil
}
