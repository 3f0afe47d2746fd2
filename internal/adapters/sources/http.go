// Package sources implements the record sources the ingestion loaders read
// from: the running-events feed, delimited attraction files, literal WKT
// lists and a PostGIS table.
package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrDecode is returned when a body cannot be parsed as a whole.
	ErrDecode = errors.New("decode failed")
)

const (
	defaultTimeout = 30 * time.Second
	maxRedirects   = 5
	userAgent      = "poimap/1.0"
)

// HTTPClient is a small fasthttp GET client that honours context deadlines.
type HTTPClient struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPClient creates a client. A zero timeout uses 30s.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		client: &fasthttp.Client{
			Name:         userAgent,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout: timeout,
	}
}

// Get fetches url and returns the body of a 2xx response. Redirects are
// followed.
func (c *HTTPClient) Get(ctx context.Context, url, accept string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	target := url
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req.Reset()
		resp.Reset()
		req.SetRequestURI(target)
		req.Header.SetMethod(fasthttp.MethodGet)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("GET %s: %w", target, err)
		}

		status := resp.StatusCode()
		if fasthttp.StatusCodeIsRedirect(status) && i < maxRedirects {
			loc := resp.Header.Peek(fasthttp.HeaderLocation)
			if len(loc) == 0 {
				return nil, fmt.Errorf("%w: %d without Location from %s", ErrUnexpectedStatus, status, target)
			}
			next := req.URI()
			next.UpdateBytes(loc)
			target = next.String()
			continue
		}
		if status < 200 || status > 299 {
			return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, status, target)
		}
		return append([]byte(nil), resp.Body()...), nil
	}
}
