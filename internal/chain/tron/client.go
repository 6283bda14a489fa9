package tron

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
	// ErrRequest indicates the node rejected the HTTP request.
	ErrRequest = &connerr.ConnectorError{
		Code:     "TRON_REQUEST_FAILED",
		Message:  "TRON node request failed",
		ExitCode: connerr.ExitUpstream,
	}

	// ErrResponse indicates the node answered with an error or an unexpected body.
	ErrResponse = &connerr.ConnectorError{
		Code:     "TRON_INVALID_RESPONSE",
		Message:  "invalid TRON node response",
		ExitCode: connerr.ExitUpstream,
	}

	// ErrExpired indicates a transaction passed its raw_data.expiration.
	ErrExpired = &connerr.ConnectorError{
		Code:       "TRON_TX_EXPIRED",
		Message:    "transaction expired",
		Suggestion: "build and sign the transaction again",
		ExitCode:   connerr.ExitInput,
	}
)

// DefaultTimeout bounds a single node request.
const DefaultTimeout = 30 * time.Second

// apiKeyHeader carries the TronGrid API key.
const apiKeyHeader = "TRON-PRO-API-KEY" //nolint:gosec // header name, not a credential

// Client is a REST client for the /wallet API of a TRON full node.
type Client struct {
	url     string
	http    *resty.Client
	limiter *chain.RateLimiter
	metrics *metrics.Metrics
}

func newClient(url string, opts *Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(url, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if opts.APIKey != "" {
		httpClient.SetHeader(apiKeyHeader, opts.APIKey)
	}
	return &Client{
		url:     url,
		http:    httpClient,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
	}
}

// URL returns the node URL.
func (c *Client) URL() string {
	return c.url
}

// Post sends body to a /wallet endpoint and decodes the answer into a map.
// Numbers are kept as json.Number.
func (c *Client) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	raw, err := c.do(ctx, path, body)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err = dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResponse, path, err)
	}
	return result, nil
}

// PostInto sends body to a /wallet endpoint and decodes the answer into out.
func (c *Client) PostInto(ctx context.Context, path string, body, out any) error {
	raw, err := c.do(ctx, path, body)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrResponse, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, body any) (raw []byte, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordRPCCall(string(chain.TRON), time.Since(start), err) }()

	if err = c.limiter.Wait(ctx, c.url); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", connerr.ErrNetworkError, path, err)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", chain.ErrRateLimited, status)
	case status >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: HTTP %d", connerr.ErrNetworkError, status)
	case status >= http.StatusBadRequest:
		return nil, connerr.WithDetails(ErrRequest, map[string]string{
			"path":   path,
			"status": strconv.Itoa(status),
		})
	}

	// The node reports failures as {"Error": "..."} with HTTP 200.
	var failure struct {
		Error string `json:"Error"`
	}
	if json.Unmarshal(resp.Body(), &failure) == nil && failure.Error != "" {
		return nil, connerr.WithDetails(ErrResponse, map[string]string{
			"path":    path,
			"message": failure.Error,
		})
	}
	return resp.Body(), nil
}
