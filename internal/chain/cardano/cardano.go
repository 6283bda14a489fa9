// Package cardano submits and reads Cardano transactions through a
// cardano-graphql endpoint. Transactions are built and signed by the caller.
package cardano

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/gateway"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

const submitMutation = `mutation submit($transaction: String!) { submitTransaction(transaction: $transaction) { hash } }`

var _ chain.Broadcaster = (*Network)(nil)

// Network talks to cardano-graphql endpoints. The node URL is the GraphQL
// endpoint itself.
type Network struct {
	client *gateway.Client
}

// NewNetwork creates the Cardano network.
func NewNetwork(opts *gateway.Options) *Network {
	return &Network{client: gateway.New(chain.ADA, opts)}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Broadcast submits a CBOR-hex signed transaction.
func (n *Network) Broadcast(ctx context.Context, nodeURL string, data chain.TransactionData) (string, error) {
	raw := strings.TrimSpace(string(data))
	if _, err := hex.DecodeString(raw); err != nil || raw == "" {
		return "", chain.InvalidField("txData", "expected a signed CBOR transaction hex")
	}

	var result struct {
		SubmitTransaction *struct {
			Hash string `json:"hash"`
		} `json:"submitTransaction"`
	}
	if err := n.query(ctx, nodeURL, submitMutation, map[string]any{"transaction": raw}, &result); err != nil {
		return "", err
	}
	if result.SubmitTransaction == nil || result.SubmitTransaction.Hash == "" {
		return "", connerr.WithDetails(gateway.ErrResponse, map[string]string{"reason": "missing transaction hash"})
	}
	return result.SubmitTransaction.Hash, nil
}
