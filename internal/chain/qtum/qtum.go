// Package qtum broadcasts and reads QTUM transactions through an Insight API.
// Transactions are built and signed by the caller.
package qtum

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/gateway"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// blockHashLength is the length of a hex block hash.
const blockHashLength = 64

// Compile-time interface checks
var (
	_ chain.Broadcaster = (*Network)(nil)
	_ chain.BlockReader = (*Network)(nil)
)

// Network talks to QTUM Insight gateways.
type Network struct {
	client *gateway.Client
}

// NewNetwork creates the QTUM network.
func NewNetwork(opts *gateway.Options) *Network {
	return &Network{client: gateway.New(chain.QTUM, opts)}
}

// Broadcast submits a signed raw transaction hex.
func (n *Network) Broadcast(ctx context.Context, nodeURL string, data chain.TransactionData) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	if _, err := hex.DecodeString(raw); err != nil || raw == "" {
		return "", chain.InvalidField("txData", "expected a signed raw transaction hex")
	}

	var resp struct {
		TxID string `json:"txid"`
	}
	if err := n.client.Post(ctx, nodeURL, "/tx/send", map[string]string{"rawtx": raw}, &resp); err != nil {
		return "", err
	}
	if resp.TxID == "" {
		return "", connerr.WithDetails(gateway.ErrResponse, map[string]string{"reason": "missing txid"})
	}
	return resp.TxID, nil
}

// Block returns a block by hash or height.
func (n *Network) Block(ctx context.Context, nodeURL, hashOrHeight string) (map[string]any, error) {
	hash := strings.TrimSpace(hashOrHeight)
	if len(hash) != blockHashLength {
		height, err := strconv.ParseUint(hash, 10, 64)
		if err != nil {
			return nil, chain.InvalidField("hashOrHeight", "expected a block hash or height")
		}
		var index struct {
			BlockHash string `json:"blockHash"`
		}
		if err = n.client.Get(ctx, nodeURL, "/block-index/"+strconv.FormatUint(height, 10), &index); err != nil {
			return nil, notFound(err, hashOrHeight)
		}
		hash = index.BlockHash
	}

	var block map[string]any
	if err := n.client.Get(ctx, nodeURL, "/block/"+hash, &block); err != nil {
		return nil, notFound(err, hashOrHeight)
	}
	return block, nil
}

// Transaction looks up a transaction; it is found once it has a confirmation.
func (n *Network) Transaction(ctx context.Context, nodeURL, txID string) (*chain.TxLookup, error) {
	var tx map[string]any
	if err := n.client.Get(ctx, nodeURL, "/tx/"+strings.TrimSpace(txID), &tx); err != nil {
		if gateway.NotFound(err) {
			return &chain.TxLookup{State: chain.TxNotFound}, nil
		}
		return nil, err
	}

	confirmations, _ := tx["confirmations"].(json.Number)
	if c, err := confirmations.Int64(); err != nil || c < 1 {
		return &chain.TxLookup{State: chain.TxPending, Tx: tx}, nil
	}
	return &chain.TxLookup{State: chain.TxFound, Tx: tx, Receipt: map[string]any{
		"blockNumber":   tx["blockheight"],
		"blockHash":     tx["blockhash"],
		"confirmations": tx["confirmations"],
		"fees":          tx["fees"],
	}}, nil
}

func notFound(err error, ref string) error {
	if gateway.NotFound(err) {
		return connerr.BlockNotFound(string(chain.QTUM), ref)
	}
	return err
}
