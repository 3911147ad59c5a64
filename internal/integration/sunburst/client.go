package sunburst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/config"
)

// ErrUnavailable indicates the quality source failed, rate-limited us, or
// answered something unparseable.
var ErrUnavailable = errors.New("sunburst: quality unavailable")

// Client queries the Sunburst sunset-quality API for single coordinates.
type Client struct {
	baseURL string
	http    *http.Client
	session *session
	logger  *zap.Logger
}

// NewClient builds a quality-provider client. The token cache is shared
// across engine calls so the daily batch does not re-login per client.
func NewClient(cfg config.SunburstConfig, cache TokenCache, logger *zap.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		session: newSession(cfg, httpClient, cache),
		logger:  logger,
	}
}

// Quality returns the predicted sunset quality percentage in [0,100] for
// one coordinate. Any failure maps to ErrUnavailable; the engine treats a
// single failed grid point as a failed forecast.
func (c *Client) Quality(ctx context.Context, lat, lon float64) (float64, error) {
	percent, err := c.quality(ctx, lat, lon, false)
	if err != nil {
		c.logger.Warn("sunburst query failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return percent, nil
}

func (c *Client) quality(ctx context.Context, lat, lon float64, retried bool) (float64, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("geo", fmt.Sprintf("%f,%f", lat, lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quality?"+params.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		// Stale session; re-login once.
		c.session.Invalidate(ctx)
		return c.quality(ctx, lat, lon, true)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload qualityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if len(payload.Features) == 0 {
		return 0, errors.New("empty feature collection")
	}
	percent := payload.Features[0].Properties.QualityPercent
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("quality_percent %f out of range", percent)
	}
	return percent, nil
}

// IsUnavailable reports whether err stems from the provider being down or
// rate-limited, as opposed to a caller mistake.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		(err != nil && strings.Contains(err.Error(), "status 429"))
}
