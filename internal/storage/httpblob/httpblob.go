// Package httpblob moves document binaries over plain HTTP: GET for
// materialized documents and converted PDFs, PUT for presigned targets.
package httpblob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliassehm/conformity/internal/transport"
)

// DefaultMaxSize bounds a fetched document.
const DefaultMaxSize = 64 << 20

// Client fetches and stores blobs by URL.
type Client struct {
	http    *http.Client
	maxSize int64
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithMaxSize caps fetched bodies.
func WithMaxSize(n int64) Option { return func(c *Client) { c.maxSize = n } }

// WithTimeout bounds each GET or PUT.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// New creates a Client. A nil http.Client uses http.DefaultClient.
func New(hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{http: hc, maxSize: DefaultMaxSize}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Fetch downloads url.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redact(url), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, transport.NewHTTPError("fetch", resp.StatusCode, resp.Header.Get("Retry-After"), body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", redact(url), err)
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", redact(url), c.maxSize)
	}
	return data, nil
}

// Put uploads body to a presigned url with the given content type.
func (c *Client) Put(ctx context.Context, url, contentType string, body []byte) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build put request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w", redact(url), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return transport.NewHTTPError("put", resp.StatusCode, resp.Header.Get("Retry-After"), msg)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// redact drops the query string, which carries presign signatures.
func redact(url string) string {
	base, _, _ := strings.Cut(url, "?")
	return base
}
