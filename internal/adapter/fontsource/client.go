// Package fontsource fetches custom clock fonts over HTTP.
package fontsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
	"github.com/couchcryptid/clock-sync-engine/internal/observability"
)

const maxFontBytes = 8 << 20

// ErrNotFound is returned when no candidate location served the font.
var ErrNotFound = errors.New("font not found")

// Client implements domain.FontLoader against a static asset server.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a font client. baseURL resolves relative references and
// may be empty when only absolute URLs are used.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse font base url: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

// LoadFont tries each candidate location for ref in order and returns the
// first one that serves the font.
func (c *Client) LoadFont(ctx context.Context, ref string) (domain.Font, error) {
	urls, err := c.candidates(ref)
	if err != nil {
		return domain.Font{}, err
	}

	var lastErr error
	for _, u := range urls {
		size, err := c.fetch(ctx, u)
		if err == nil {
			c.logger.Debug("font fetched", "ref", ref, "source", u, "bytes", size)
			return domain.Font{Ref: ref, Name: FontName(ref), Source: u, Size: size}, nil
		}
		if ctx.Err() != nil {
			return domain.Font{}, ctx.Err()
		}
		c.logger.Debug("font candidate failed", "source", u, "error", err)
		lastErr = err
	}
	return domain.Font{}, fmt.Errorf("load font %q: %w", ref, lastErr)
}

// candidates lists the URLs tried for ref. Absolute URLs are used as is;
// other references are tried as given, under fonts/ and under /fonts/.
func (c *Client) candidates(ref string) ([]string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return []string{ref}, nil
	}
	if c.baseURL == nil {
		return nil, fmt.Errorf("load font %q: relative reference without a base url", ref)
	}

	clean := strings.TrimPrefix(ref, "/")
	seen := make(map[string]bool, 3)
	var out []string
	for _, rel := range []string{clean, "fonts/" + clean, "/fonts/" + clean} {
		r, err := url.Parse(rel)
		if err != nil {
			return nil, fmt.Errorf("parse font reference %q: %w", ref, err)
		}
		abs := c.baseURL.ResolveReference(r).String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, u string) (int, error) {
	start := time.Now()
	defer func() { c.metrics.FontFetchDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.metrics.FontRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FontRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("font request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.FontRequests.WithLabelValues("not_found").Inc()
		return 0, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.metrics.FontRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("font server error: status %d", resp.StatusCode)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxFontBytes+1))
	if err != nil {
		c.metrics.FontRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("read font body: %w", err)
	}
	if n > maxFontBytes {
		c.metrics.FontRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("font exceeds %d bytes", maxFontBytes)
	}
	if n == 0 {
		c.metrics.FontRequests.WithLabelValues("error").Inc()
		return 0, errors.New("font body is empty")
	}
	c.metrics.FontRequests.WithLabelValues("ok").Inc()
	return int(n), nil
}

// FontName is the file name of ref without its extension.
func FontName(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	base := path.Base(ref)
	return strings.TrimSuffix(base, path.Ext(base))
}
