// Package feed fetches and decodes the tracker's RSS feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 * 1024 * 1024 // 10 MB
	userAgent       = "feedgrab/1.0"
)

// Settings holds the feed location and the credentials needed to read it.
type Settings struct {
	URL     string
	Cookie  string
	Timeout time.Duration
}

// Client fetches the feed over HTTP.
type Client struct {
	settings Settings
	client   *http.Client
}

// NewClient creates a new feed client.
func NewClient(settings Settings) *Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the feed. An unreachable or malformed feed is an
// error; an empty channel is not.
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.settings.Cookie != "" {
		req.Header.Set("Cookie", c.settings.Cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return Parse(body)
}
