// Package gateway is the REST transport shared by the chain modules that
// take pre-signed transactions (QTUM Insight, Cardano GraphQL, Tezos RPC).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/metrics"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

var (
	// ErrRequest indicates the gateway rejected the request.
	ErrRequest = &connerr.ConnectorError{
		Code:     "GATEWAY_REQUEST_FAILED",
		Message:  "node gateway request failed",
		ExitCode: connerr.ExitUpstream,
	}

	// ErrResponse indicates an unexpected gateway response.
	ErrResponse = &connerr.ConnectorError{
		Code:     "GATEWAY_INVALID_RESPONSE",
		Message:  "invalid node gateway response",
		ExitCode: connerr.ExitUpstream,
	}
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxBodyInError bounds how much of an error body is echoed in details.
const maxBodyInError = 200

// Options contains optional configuration for a gateway client.
type Options struct {
	// Timeout bounds each request; defaults to DefaultTimeout.
	Timeout time.Duration
	// Limiter throttles requests per node URL.
	Limiter *chain.RateLimiter
	// Metrics records requests under the chain label.
	Metrics *metrics.Metrics
	// Headers are sent with every request.
	Headers map[string]string
}

// Client sends JSON requests to the nodes of one chain.
type Client struct {
	chain   chain.ID
	http    *resty.Client
	limiter *chain.RateLimiter
	metrics *metrics.Metrics
}

// New creates a gateway client for a chain.
func New(id chain.ID, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		chain: id,
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeaders(opts.Headers),
		limiter: opts.Limiter,
		metrics: opts.Metrics,
	}
}

// Post sends body to nodeURL+path and decodes the answer into out.
// A nil out discards the body.
func (c *Client) Post(ctx context.Context, nodeURL, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, nodeURL, path, body, out)
}

// Get fetches nodeURL+path and decodes the answer into out.
func (c *Client) Get(ctx context.Context, nodeURL, path string, out any) error {
	return c.do(ctx, http.MethodGet, nodeURL, path, nil, out)
}

// NotFound reports whether err is a 404 from the gateway.
func NotFound(err error) bool {
	var ce *connerr.ConnectorError
	return connerr.As(err, &ce) && ce.Is(ErrRequest) && ce.Detail("status") == strconv.Itoa(http.StatusNotFound)
}

func (c *Client) do(ctx context.Context, method, nodeURL, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { c.metrics.RecordRPCCall(string(c.chain), time.Since(start), err) }()

	if err = c.limiter.Wait(ctx, nodeURL); err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	url := strings.TrimRight(nodeURL, "/") + path
	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", connerr.ErrNetworkError, method, path, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", chain.ErrRateLimited, status)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP %d", connerr.ErrNetworkError, status)
	case status >= http.StatusBadRequest:
		return connerr.WithDetails(ErrRequest, map[string]string{
			"chain":  string(c.chain),
			"path":   path,
			"status": strconv.Itoa(status),
			"body":   truncate(strings.TrimSpace(string(resp.Body())), maxBodyInError),
		})
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err = dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrResponse, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
