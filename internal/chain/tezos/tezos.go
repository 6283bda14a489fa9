// Package tezos injects and reads Tezos operations through a node's RPC.
// Operations are forged and signed by the caller.
package tezos

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/gateway"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

var _ chain.Broadcaster = (*Network)(nil)

// Network talks to Tezos nodes.
type Network struct {
	client *gateway.Client
}

// NewNetwork creates the Tezos network.
func NewNetwork(opts *gateway.Options) *Network {
	return &Network{client: gateway.New(chain.XTZ, opts)}
}

// Broadcast injects a signed operation hex and returns the operation hash.
func (n *Network) Broadcast(ctx context.Context, nodeURL string, data chain.TransactionData) (string, error) {
	raw := strings.TrimSpace(string(data))
	if _, err := hex.DecodeString(raw); err != nil || raw == "" {
		return "", chain.InvalidField("txData", "expected a signed operation hex")
	}

	// The injection endpoint takes the operation as a JSON string.
	body, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	var hash string
	if err = n.client.Post(ctx, nodeURL, "/injection/operation", json.RawMessage(body), &hash); err != nil {
		return "", err
	}
	if hash == "" {
		return "", connerr.WithDetails(gateway.ErrResponse, map[string]string{"reason": "missing operation hash"})
	}
	return hash, nil
}
