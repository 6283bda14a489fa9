package tron_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/tron"
)

const (
	testKey        = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testRecipient  = "41742d35cc6634c0532925a3b844bc454e4438f44e"
	testToken      = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
	testRawDataHex = "0a02c6b12208a1b2c3d4e5f6a7b8"
)

// fakeNode is a scripted TRON full node keyed by /wallet path.
type fakeNode struct {
	mu        sync.Mutex
	responses map[string]any
	bodies    map[string]map[string]any
	apiKeys   []string
}

func newFakeNode(t *testing.T, responses map[string]any) (*fakeNode, string) {
	t.Helper()
	node := &fakeNode{responses: responses, bodies: make(map[string]map[string]any)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		node.mu.Lock()
		node.bodies[r.URL.Path] = body
		node.apiKeys = append(node.apiKeys, r.Header.Get("TRON-PRO-API-KEY"))
		resp, ok := node.responses[r.URL.Path]
		node.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return node, server.URL
}

func (f *fakeNode) body(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

// unsignedTx returns a node-built transaction with a consistent txID.
func unsignedTx(expiration time.Time) map[string]any {
	raw, _ := hex.DecodeString(testRawDataHex)
	sum := sha256.Sum256(raw)
	return map[string]any{
		"visible": false,
		"txID":    hex.EncodeToString(sum[:]),
		"raw_data": map[string]any{
			"contract":   []any{},
			"expiration": expiration.UnixMilli(),
		},
		"raw_data_hex": testRawDataHex,
	}
}

func newNetwork(t *testing.T, now time.Time) *tron.Network {
	t.Helper()
	return tron.NewNetwork(&tron.Options{
		Timeout: 5 * time.Second,
		APIKey:  "test-key",
		Now:     func() time.Time { return now },
	})
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func builderFor(t *testing.T, n *tron.Network, asset chain.Asset, op chain.Operation) chain.TransactionBuilder {
	t.Helper()
	reg := chain.NewRegistry(asset, n.Routes()[asset]...)
	b, err := reg.Builder(chain.TRON, op)
	require.NoError(t, err)
	return b
}

// keyWireAddress is the 41-prefixed hex address of testKey.
func keyWireAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)
	return "41" + strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()[2:])
}
