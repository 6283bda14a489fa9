package tezos

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/gateway"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

const (
	// blockHashLength is the length of a base58 block hash ("B...").
	blockHashLength = 51

	// lookback is how many blocks behind head a transaction lookup scans.
	// Nodes keep no operation index, so older operations read as not found.
	lookback = 10
)

var _ chain.BlockReader = (*Network)(nil)

type rpcBlock struct {
	ChainID  string `json:"chain_id"`
	Hash     string `json:"hash"`
	Protocol string `json:"protocol"`
	Header   struct {
		Level       json.Number `json:"level"`
		Predecessor string      `json:"predecessor"`
		Timestamp   string      `json:"timestamp"`
	} `json:"header"`
	Operations [][]rpcOperation `json:"operations"`
}

type rpcOperation struct {
	Hash     string           `json:"hash"`
	Contents []map[string]any `json:"contents"`
}

// Block returns a flattened block by hash or level.
func (n *Network) Block(ctx context.Context, nodeURL, hashOrHeight string) (map[string]any, error) {
	ref := strings.TrimSpace(hashOrHeight)
	if _, err := strconv.ParseUint(ref, 10, 64); err != nil &&
		(len(ref) != blockHashLength || !strings.HasPrefix(ref, "B")) {
		return nil, chain.InvalidField("hashOrHeight", "expected a block hash or level")
	}

	var b rpcBlock
	if err := n.client.Get(ctx, nodeURL, "/chains/main/blocks/"+ref, &b); err != nil {
		if gateway.NotFound(err) {
			return nil, connerr.BlockNotFound(string(chain.XTZ), hashOrHeight)
		}
		return nil, err
	}
	return b.flatten(), nil
}

// Transaction scans the latest blocks and the mempool for an operation.
// A mempool failure only matters when no block holds the operation.
func (n *Network) Transaction(ctx context.Context, nodeURL, txID string) (*chain.TxLookup, error) {
	hash := strings.TrimSpace(txID)

	blocks := make([]*rpcBlock, lookback)
	var mempool struct {
		Applied   []rpcOperation `json:"applied"`
		Validated []rpcOperation `json:"validated"`
	}
	var mempoolErr error
	g, gctx := errgroup.WithContext(ctx)
	for i := range blocks {
		g.Go(func() error {
			var b rpcBlock
			err := n.client.Get(gctx, nodeURL, "/chains/main/blocks/head~"+strconv.Itoa(i), &b)
			switch {
			case gateway.NotFound(err):
				// Chain shorter than the lookback.
				return nil
			case err != nil:
				return err
			}
			blocks[i] = &b
			return nil
		})
	}
	g.Go(func() error {
		mempoolErr = n.client.Get(gctx, nodeURL, "/chains/main/mempool/pending_operations", &mempool)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, b := range blocks {
		if b == nil {
			continue
		}
		for _, pass := range b.Operations {
			for i := range pass {
				if pass[i].Hash == hash {
					return &chain.TxLookup{State: chain.TxFound, Tx: pass[i].transaction(), Receipt: pass[i].receipt(b)}, nil
				}
			}
		}
	}

	if mempoolErr != nil {
		return nil, mempoolErr
	}
	for _, pending := range [][]rpcOperation{mempool.Applied, mempool.Validated} {
		for i := range pending {
			if pending[i].Hash == hash {
				return &chain.TxLookup{State: chain.TxPending, Tx: pending[i].transaction()}, nil
			}
		}
	}
	return &chain.TxLookup{State: chain.TxNotFound}, nil
}

// flatten keeps the header fields, the operation hashes and the summed fees.
func (b *rpcBlock) flatten() map[string]any {
	fees := decimal.Zero
	hashes := make([]any, 0)
	for _, pass := range b.Operations {
		for _, op := range pass {
			hashes = append(hashes, op.Hash)
			for _, content := range op.Contents {
				fee, _ := content["fee"].(string)
				if d, err := decimal.NewFromString(fee); err == nil {
					fees = fees.Add(d)
				}
			}
		}
	}
	return map[string]any{
		"hash":        b.Hash,
		"chain_id":    b.ChainID,
		"protocol":    b.Protocol,
		"level":       b.Header.Level,
		"predecessor": b.Header.Predecessor,
		"timestamp":   b.Header.Timestamp,
		"fees":        fees.String(),
		"operations":  hashes,
	}
}

// primary returns the first transaction content of a batch, or the first
// content when the batch holds no transfer.
func (op *rpcOperation) primary() map[string]any {
	for _, content := range op.Contents {
		if content["kind"] == "transaction" {
			return content
		}
	}
	if len(op.Contents) > 0 {
		return op.Contents[0]
	}
	return map[string]any{}
}

func (op *rpcOperation) transaction() map[string]any {
	tx := map[string]any{"hash": op.Hash}
	content := op.primary()
	for _, key := range []string{"kind", "source", "destination", "amount", "fee", "counter", "gas_limit", "storage_limit"} {
		if v, ok := content[key]; ok {
			tx[key] = v
		}
	}
	return tx
}

func (op *rpcOperation) receipt(b *rpcBlock) map[string]any {
	receipt := map[string]any{
		"level":     b.Header.Level,
		"blockHash": b.Hash,
		"timestamp": b.Header.Timestamp,
	}
	meta, _ := op.primary()["metadata"].(map[string]any)
	if result, ok := meta["operation_result"].(map[string]any); ok {
		receipt["status"] = result["status"] == "applied"
		receipt["consumed_milligas"] = result["consumed_milligas"]
	}
	return receipt
}
