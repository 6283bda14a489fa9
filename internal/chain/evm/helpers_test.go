package evm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/evm"
)

const (
	testKey       = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testRecipient = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	testToken     = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// fakeNode is a scripted JSON-RPC node that records the methods it served.
type fakeNode struct {
	mu      sync.Mutex
	results map[string]any
	calls   []string
	params  map[string][]any
}

func newFakeNode(t *testing.T, results map[string]any) (*fakeNode, string) {
	t.Helper()
	node := &fakeNode{results: results, params: make(map[string][]any)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		node.mu.Lock()
		node.calls = append(node.calls, req.Method)
		node.params[req.Method] = req.Params
		result, ok := node.results[req.Method]
		node.mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found: " + req.Method}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return node, server.URL
}

func (f *fakeNode) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == method {
			return true
		}
	}
	return false
}

func (f *fakeNode) lastParams(method string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[method]
}

// defaultNode answers the calls every build makes.
func defaultNode(t *testing.T, extra map[string]any) (*fakeNode, string) {
	t.Helper()
	results := map[string]any{
		"eth_chainId":             "0x1",
		"eth_gasPrice":            "0x4a817c800", // 20 gwei
		"eth_estimateGas":         "0x186a0",     // 100000
		"eth_getTransactionCount": "0x7",
	}
	for k, v := range extra {
		results[k] = v
	}
	return newFakeNode(t, results)
}

func newNetwork(t *testing.T, id chain.ID) *evm.Network {
	t.Helper()
	n, err := evm.NewNetwork(id, &evm.Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return n
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// builderFor resolves a builder through the network's route table.
func builderFor(t *testing.T, n *evm.Network, asset chain.Asset, op chain.Operation) chain.TransactionBuilder {
	t.Helper()
	reg := chain.NewRegistry(asset, n.Routes()[asset]...)
	b, err := reg.Builder(n.ID(), op)
	require.NoError(t, err)
	return b
}
