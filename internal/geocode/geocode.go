// Package geocode resolves coordinates to human-readable addresses via the
// Nominatim reverse geocoding API. Lookups are best-effort: any failure
// degrades to a coordinate-formatted placeholder and never surfaces an error
// to the caller.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// Placeholder formats coordinates as the address fallback recorded at write
// time, before enrichment has run.
func Placeholder(lat, lon float64) string {
	return fmt.Sprintf("Lat: %.6f, Lon: %.6f", lat, lon)
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// Reverse returns the address for the coordinates, or the coordinate
// placeholder when the lookup fails for any reason.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) string {
	addr, err := c.lookup(ctx, lat, lon)
	if err != nil {
		c.logger.Warn("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return Placeholder(lat, lon)
	}
	return addr
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode API returned status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geocode response: %w", err)
	}
	if body.DisplayName == "" {
		return "", fmt.Errorf("geocode response missing display_name")
	}
	return body.DisplayName, nil
}
