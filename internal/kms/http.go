package kms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// apiKeyHeader authenticates against the KMS API.
const apiKeyHeader = "x-api-key" //nolint:gosec // header name, not a credential

// DefaultTimeout bounds a single KMS request.
const DefaultTimeout = 10 * time.Second

// Compile-time interface check
var _ Store = (*HTTPStore)(nil)

// HTTPStore talks to a remote KMS over its /v3/kms REST API.
type HTTPStore struct {
	http *resty.Client
}

type storeRequest struct {
	TxData       string   `json:"txData"`
	Chain        chain.ID `json:"chain"`
	SignatureIDs []string `json:"signatureId"`
	Index        *int     `json:"index,omitempty"`
}

type storeResponse struct {
	SignatureID string `json:"signatureId"`
}

// NewHTTPStore creates a store for the KMS at baseURL.
func NewHTTPStore(baseURL, apiKey string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		c.SetHeader(apiKeyHeader, apiKey)
	}
	return &HTTPStore{http: c}
}

// Store posts the pending transaction and returns the ID assigned by the KMS.
func (s *HTTPStore) Store(ctx context.Context, txData chain.TransactionData, id chain.ID, signatureIDs []string, index *int) (string, error) {
	var out storeResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(storeRequest{TxData: string(txData), Chain: id, SignatureIDs: signatureIDs, Index: index}).
		SetResult(&out).
		Post("/v3/kms")
	if err := check(resp, err, "/v3/kms"); err != nil {
		return "", err
	}
	if out.SignatureID == "" {
		return "", connerr.WithDetails(ErrRequest, map[string]string{"reason": "response has no signatureId"})
	}
	return out.SignatureID, nil
}

// Complete reports the broadcast txID of a pending signature.
func (s *HTTPStore) Complete(ctx context.Context, signatureID, txID string) error {
	path := fmt.Sprintf("/v3/kms/%s/%s", url.PathEscape(signatureID), url.PathEscape(txID))
	resp, err := s.http.R().SetContext(ctx).Put(path)
	return check(resp, err, "/v3/kms/{id}/{txId}")
}

func check(resp *resty.Response, err error, path string) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", connerr.ErrNetworkError, path, err)
	}
	switch status := resp.StatusCode(); {
	case status == http.StatusNotFound:
		return connerr.WithDetails(ErrPendingNotFound, map[string]string{"path": path})
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP %d", connerr.ErrNetworkError, status)
	case status >= http.StatusBadRequest:
		return connerr.WithDetails(ErrRequest, map[string]string{
			"path":   path,
			"status": strconv.Itoa(status),
			"body":   strings.TrimSpace(string(resp.Body())),
		})
	}
	return nil
}
