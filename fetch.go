package halclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves and decodes the resource at a locator. Failures must be
// *Error values with code transport, status or decode so callers can tell them
// apart with errors.Is.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*Resource, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locator string) (*Resource, error)

func (f FetcherFunc) Fetch(ctx context.Context, locator string) (*Resource, error) {
	return f(ctx, locator)
}

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// BaseURL resolves relative locators. Absolute locators are used as-is.
	BaseURL string
	// Client defaults to a client with Timeout and a pooled transport.
	Client  *http.Client
	Timeout time.Duration
	// Headers are added to every request (e.g. Authorization).
	Headers map[string]string
	// MaxBodyBytes caps response bodies; 0 means 10 MiB.
	MaxBodyBytes int64
	JSON         JSONDriver
	Logger       *slog.Logger
}

const defaultMaxBodyBytes = 10 << 20

// HTTPFetcher fetches HAL resources over HTTP.
type HTTPFetcher struct {
	client   *http.Client
	base     *url.URL
	headers  map[string]string
	maxBytes int64
	json     JSONDriver
	logger   *slog.Logger
}

// NewHTTPFetcher validates cfg and returns a fetcher.
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client:   cfg.Client,
		headers:  cfg.Headers,
		maxBytes: cfg.MaxBodyBytes,
		json:     driverOrDefault(cfg.JSON),
		logger:   cfg.Logger,
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("base url %q is not absolute", cfg.BaseURL)
		}
		f.base = u
	}
	if f.client == nil {
		f.client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if f.maxBytes <= 0 {
		f.maxBytes = defaultMaxBodyBytes
	}
	return f, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// URL resolves locator against the base URL.
func (f *HTTPFetcher) URL(locator string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return nil, err
	}
	if u.IsAbs() {
		return u, nil
	}
	if f.base == nil {
		return nil, fmt.Errorf("relative locator %q without base url", locator)
	}
	return f.base.ResolveReference(u), nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (*Resource, error) {
	log := LoggerFrom(ctx, f.logger)
	u, err := f.URL(locator)
	if err != nil {
		return nil, &Error{Code: CodeTransport, Locator: locator, Message: "invalid locator", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Code: CodeTransport, Locator: locator, Message: "create request", Cause: err}
	}
	req.Header.Set("Accept", MediaTypeHAL+", "+MediaTypeJSON)
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	log.Debug("fetching resource", "url", u.String())
	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn("fetch failed", "url", u.String(), "error", err)
		return nil, &Error{Code: CodeTransport, Locator: locator, Message: "execute request", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &Error{Code: CodeTransport, Locator: locator, Message: "read body", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("unexpected status", "url", u.String(), "status", resp.StatusCode)
		return nil, &Error{Code: CodeStatus, Locator: locator, Status: resp.StatusCode, Message: snippet(body)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &Error{Code: CodeDecode, Locator: locator, Message: fmt.Sprintf("body exceeds %d bytes", f.maxBytes)}
	}

	res := &Resource{}
	if err := f.json.Unmarshal(body, res); err != nil {
		return nil, &Error{Code: CodeDecode, Locator: locator, Message: "decode body", Cause: err}
	}
	log.Debug("fetched resource", "url", u.String(), "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return res, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
