package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/araddon/dateparse"

	"curator/config"
)

// ErrNotModified signals an HTTP 304 on a conditional request. It is a
// control outcome, not a failure: callers skip reprocessing the source.
var ErrNotModified = errors.New("content not modified")

// RateLimitedError signals an HTTP 429 so callers can apply backoff policy.
// The transport itself never retries.
type RateLimitedError struct {
	URL string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("got 429 Too Many Requests for %s, try decreasing refresh interval", e.URL)
}

// RawContent is the result of a successful fetch. LastModified is zero when
// the server did not send a usable Last-Modified header.
type RawContent struct {
	Body         []byte
	LastModified time.Time
}

// TransportConfig holds per-source fetch settings.
type TransportConfig struct {
	UserAgent string
	Proxy     string
	Headers   map[string]string
	Timeout   time.Duration
}

// Transport performs conditional HTTP GETs with merged headers and optional
// proxy. One instance is configured per source.
type Transport struct {
	client  *http.Client
	headers map[string]string
}

// NewTransport builds a Transport from per-source settings. The default
// User-Agent applies unless the source overrides it.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = config.FetchTimeout
	}

	client := &http.Client{Timeout: timeout}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %s: %w", cfg.Proxy, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	headers := map[string]string{
		"User-Agent": config.DefaultUserAgent,
	}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Transport{client: client, headers: headers}, nil
}

// Fetch performs a GET against url. When modifiedSince is non-zero an
// If-Modified-Since header is sent and a 304 response surfaces as
// ErrNotModified. A 200 with an empty body is returned as empty content,
// not an error; extraction fails closed on empty input downstream.
func (t *Transport) Fetch(ctx context.Context, rawURL string, modifiedSince time.Time) (*RawContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}

	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if !modifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", modifiedSince.UTC().Format(http.TimeFormat))
	}

	log.Printf("[webfetch] GET %s", rawURL)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed for %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotModified)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitedError{URL: rawURL}
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("got %s for %s", resp.Status, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}

	if len(body) == 0 {
		log.Printf("[webfetch] Response 200 OK but no content: %s", rawURL)
	}

	return &RawContent{
		Body:         body,
		LastModified: parseLastModified(resp.Header.Get("Last-Modified")),
	}, nil
}

// FetchPage adapts Fetch to the single-page contract used by the extractor
// and digest splitter: unconditional GET, body plus Last-Modified.
func (t *Transport) FetchPage(ctx context.Context, rawURL string) ([]byte, time.Time, error) {
	content, err := t.Fetch(ctx, rawURL, time.Time{})
	if err != nil {
		return nil, time.Time{}, err
	}
	return content.Body, content.LastModified, nil
}

func parseLastModified(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := dateparse.ParseAny(value)
	if err != nil {
		log.Printf("[webfetch] Unparsable Last-Modified header %q: %v", value, err)
		return time.Time{}
	}
	return ts
}
