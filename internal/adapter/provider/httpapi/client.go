// Package httpapi implements the ContentProvider port against a JSON HTTP
// streaming API. Requests are rate limited so rapid track skipping cannot
// hammer the upstream service.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/ports"
)

const defaultTimeout = 30 * time.Second

// Client talks to the remote streaming API.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
	// downloads can outlive the metadata timeout; cancellation comes from ctx
	downloadClient *http.Client
	limiter        *rate.Limiter
}

// NewClient creates an API client. requestsPerSec bounds how often metadata
// endpoints are hit; values <= 0 disable the limit.
func NewClient(logger *slog.Logger, baseURL string, requestsPerSec float64) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSec), 1)
	}
	return &Client{
		logger:         logger,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: defaultTimeout},
		downloadClient: &http.Client{},
		limiter:        limiter,
	}
}

type urlResponse struct {
	URL string `json:"url"`
}

// StreamURL asks the API for a time-limited audio URL for the given song.
func (c *Client) StreamURL(ctx context.Context, remoteID int64) (string, error) {
	res, err := c.getURL(ctx, fmt.Sprintf("/song/url/%d", remoteID))
	if err != nil {
		return "", err
	}
	if res == "" {
		return "", domain.ErrNoStreamURL
	}
	return res, nil
}

// CoverURL asks the API for the song's cover art URL. An empty URL with a nil
// error means the song has no cover.
func (c *Client) CoverURL(ctx context.Context, remoteID int64) (string, error) {
	return c.getURL(ctx, fmt.Sprintf("/song/cover/%d", remoteID))
}

func (c *Client) getURL(ctx context.Context, path string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	var payload urlResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return payload.URL, nil
}

// Download streams the content at url into destPath. The destination is left
// behind on failure for the caller to remove; callers are expected to pass a
// temp path and rename on success.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	c.logger.Debug("downloaded content",
		slog.String("dest", destPath),
		slog.Int64("bytes", written))
	return nil
}

var _ ports.ContentProvider = (*Client)(nil)
