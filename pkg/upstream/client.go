// Package upstream is the HTTP client shared by the platform drivers. It maps
// upstream status codes onto the scan error taxonomy; in particular a 429 is
// always reported as a rate limit, never as an empty result.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/ratelimit"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Client performs GET requests against one platform
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	platform   string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter throttles every request through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a client for platform
func NewClient(platform string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      defaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9,ja;q=0.8",
			"Cache-Control":   "no-cache",
		},
		platform: platform,
		logger:   logger.OrGlobal(log).WithField("platform", platform),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// Get performs a GET request and checks the response status.
// The caller closes the body of a successful response.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, c.platform, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"url": url,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WithError(err).WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"duration": duration,
		})
		return nil, errors.Wrap(errors.ErrorTypeNetwork, c.platform, fmt.Sprintf("network error: %v", err), err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, c.platform, "failed to read response body", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WithError(err).WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"body_preview": preview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, c.platform, fmt.Sprintf("failed to parse JSON: %v", err), err)
	}
	return nil
}

// GetDocument performs a GET request and parses the HTML response
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, c.platform, "failed to parse HTML", err)
	}
	return doc, nil
}

// checkResponseStatus maps non-2xx responses onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		logger.LogRateLimit(c.logger, c.platform, resp.Request.URL.Path)
		return errors.RateLimited(c.platform, fmt.Sprintf("Rate limited by %s. Please wait a while before scanning again.", c.platform))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", fields)
		return errors.FromStatusCode(c.platform, resp.StatusCode, fmt.Sprintf("%s rejected the session, please log in again", c.platform))
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return errors.FromStatusCode(c.platform, resp.StatusCode, "resource not found")
	case resp.StatusCode >= 500:
		c.logger.WarnWithFields("server error", fields)
		return errors.FromStatusCode(c.platform, resp.StatusCode, "server error")
	default:
		c.logger.WarnWithFields("unexpected status", fields)
		return errors.FromStatusCode(c.platform, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}
}
