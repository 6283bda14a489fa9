// Package rpc provides a minimal JSON-RPC 2.0 client for EVM nodes.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/metrics"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

var (
	// ErrRPCRequest indicates the node rejected the HTTP request.
	ErrRPCRequest = &connerr.ConnectorError{
		Code:     "RPC_REQUEST_FAILED",
		Message:  "RPC request failed",
		ExitCode: connerr.ExitUpstream,
	}

	// ErrRPCResponse indicates an invalid RPC response.
	ErrRPCResponse = &connerr.ConnectorError{
		Code:     "RPC_INVALID_RESPONSE",
		Message:  "invalid RPC response",
		ExitCode: connerr.ExitUpstream,
	}

	// ErrInvalidHexNumber indicates an invalid hex number.
	ErrInvalidHexNumber = &connerr.ConnectorError{
		Code:     "RPC_INVALID_HEX",
		Message:  "invalid hex number",
		ExitCode: connerr.ExitUpstream,
	}
)

// DefaultTimeout bounds a single RPC round trip.
const DefaultTimeout = 30 * time.Second

// ClientOptions contains optional configuration for the RPC client.
type ClientOptions struct {
	// Chain labels metrics; defaults to "evm".
	Chain string
	// Timeout bounds each call; defaults to DefaultTimeout.
	Timeout time.Duration
	// Limiter throttles calls to the node. Nil disables throttling.
	Limiter *chain.RateLimiter
	// Metrics records call counts and latency. Nil disables recording.
	Metrics *metrics.Metrics
	// Headers are sent with every request (API keys).
	Headers map[string]string
}

// Client is a minimal JSON-RPC client.
type Client struct {
	url       string
	chain     string
	http      *resty.Client
	limiter   *chain.RateLimiter
	metrics   *metrics.Metrics
	idCounter atomic.Uint64
}

// NewClient creates a new RPC client.
func NewClient(url string, opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	label := opts.Chain
	if label == "" {
		label = "evm"
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeaders(opts.Headers)

	return &Client{
		url:     url,
		chain:   label,
		http:    httpClient,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
	}
}

// URL returns the node URL.
func (c *Client) URL() string {
	return c.url
}

// request represents a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// response represents a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is an error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs a JSON-RPC call and returns the raw result.
// A JSON null result is returned as nil.
func (c *Client) Call(ctx context.Context, method string, params ...any) (result json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.metrics.RecordRPCCall(c.chain, time.Since(start), err) }()

	if params == nil {
		params = []any{}
	}
	if err = c.limiter.Wait(ctx, c.url); err != nil {
		return nil, err
	}

	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	}

	httpResp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", connerr.ErrNetworkError, method, err)
	}
	if err = statusError(httpResp); err != nil {
		return nil, err
	}

	var resp response
	if err = json.Unmarshal(httpResp.Body(), &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRPCResponse, method, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if isNull(resp.Result) {
		return nil, nil
	}
	return resp.Result, nil
}

// statusError maps HTTP failures: 429 and 5xx are retryable, other 4xx are not.
func statusError(resp *resty.Response) error {
	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", chain.ErrRateLimited, status)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: HTTP %d", connerr.ErrNetworkError, status)
	case status >= http.StatusBadRequest:
		return connerr.WithDetails(ErrRPCRequest, map[string]string{
			"status": fmt.Sprintf("%d", status),
			"body":   truncate(string(resp.Body()), 200),
		})
	}
	return nil
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_chainId")
}

// GetTransactionCount returns the nonce for an address.
func (c *Client) GetTransactionCount(ctx context.Context, address, block string) (uint64, error) {
	if block == "" {
		block = "pending"
	}
	n, err := c.callBig(ctx, "eth_getTransactionCount", address, block)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GasPrice returns the current gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// CallMsg represents the parameters for eth_call and eth_estimateGas.
// An empty To is a contract creation.
type CallMsg struct {
	From  string
	To    string
	Gas   uint64
	Value *big.Int
	Data  []byte
}

// MarshalJSON implements custom JSON marshaling for CallMsg.
func (m CallMsg) MarshalJSON() ([]byte, error) {
	type callMsgJSON struct {
		From  string `json:"from,omitempty"`
		To    string `json:"to,omitempty"`
		Gas   string `json:"gas,omitempty"`
		Value string `json:"value,omitempty"`
		Data  string `json:"data,omitempty"`
	}

	msg := callMsgJSON{
		From: m.From,
		To:   m.To,
	}
	if m.Gas > 0 {
		msg.Gas = hexutil.EncodeUint64(m.Gas)
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		msg.Value = hexutil.EncodeBig(m.Value)
	}
	if len(m.Data) > 0 {
		msg.Data = hexutil.Encode(m.Data)
	}

	return json.Marshal(msg)
}

// EthCall performs an eth_call.
func (c *Client) EthCall(ctx context.Context, msg CallMsg, block string) ([]byte, error) {
	if block == "" {
		block = "latest"
	}
	hexVal, err := c.callString(ctx, "eth_call", msg, block)
	if err != nil {
		return nil, err
	}
	return parseHexBytes(hexVal)
}

// EstimateGas estimates the gas needed for a transaction.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	n, err := c.callBig(ctx, "eth_estimateGas", msg)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// SendRawTransaction sends a signed transaction given as 0x hex.
// Returns the transaction hash.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	return c.callString(ctx, "eth_sendRawTransaction", rawTx)
}

// BlockByNumber returns a block with full transactions, or nil when the
// node does not know it. number is a hex quantity or a tag such as "latest".
func (c *Client) BlockByNumber(ctx context.Context, number string) (map[string]any, error) {
	return c.callObject(ctx, "eth_getBlockByNumber", number, true)
}

// BlockByHash returns a block with full transactions, or nil when unknown.
func (c *Client) BlockByHash(ctx context.Context, hash string) (map[string]any, error) {
	return c.callObject(ctx, "eth_getBlockByHash", hash, true)
}

// TransactionByHash returns a transaction, or nil when unknown.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (map[string]any, error) {
	return c.callObject(ctx, "eth_getTransactionByHash", hash)
}

// TransactionReceipt returns a receipt, or nil while the transaction is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (map[string]any, error) {
	return c.callObject(ctx, "eth_getTransactionReceipt", hash)
}

// callObject decodes an object result with json.Number for numeric values.
func (c *Client) callObject(ctx context.Context, method string, params ...any) (map[string]any, error) {
	result, err := c.Call(ctx, method, params...)
	if err != nil || result == nil {
		return nil, err
	}
	return DecodeObject(result)
}

func (c *Client) callString(ctx context.Context, method string, params ...any) (string, error) {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRPCResponse, method, err)
	}
	return s, nil
}

func (c *Client) callBig(ctx context.Context, method string, params ...any) (*big.Int, error) {
	s, err := c.callString(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	return parseHexBigInt(s)
}

// DecodeObject decodes a JSON object keeping numbers as json.Number.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRPCResponse, err)
	}
	return out, nil
}

// parseHexBigInt parses a hex string (with or without 0x prefix) to big.Int.
func parseHexBigInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}

	n := new(big.Int)
	if _, ok := n.SetString(s, 16); !ok {
		return nil, ErrInvalidHexNumber
	}

	return n, nil
}

// parseHexBytes parses a hex string to bytes.
func parseHexBytes(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRPCResponse, err)
	}
	return b, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
