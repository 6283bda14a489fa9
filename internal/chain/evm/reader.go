package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
	"github.com/mrz1836/connector/internal/chain/evm/rpc"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// blockHashLength is the length of a 0x-prefixed 32-byte hash.
const blockHashLength = 66

// Broadcast submits a signed 0x hex transaction and returns its hash.
func (n *Network) Broadcast(ctx context.Context, nodeURL string, data chain.TransactionData) (string, error) {
	raw := strings.TrimSpace(string(data))
	if !strings.HasPrefix(raw, "0x") {
		return "", connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
			"field":  "txData",
			"reason": "expected a signed 0x hex transaction",
		})
	}
	return n.Client(nodeURL).SendRawTransaction(ctx, raw)
}

// Block returns a block with full transactions by hash or height.
// Heights are decimal, 0x hex, or a tag such as "latest".
func (n *Network) Block(ctx context.Context, nodeURL, hashOrHeight string) (map[string]any, error) {
	client := n.Client(nodeURL)
	ref := strings.TrimSpace(hashOrHeight)

	var (
		block map[string]any
		err   error
	)
	switch {
	case len(ref) == blockHashLength && strings.HasPrefix(ref, "0x"):
		block, err = client.BlockByHash(ctx, ref)
	case ref == "latest" || ref == "earliest" || ref == "pending":
		block, err = client.BlockByNumber(ctx, ref)
	default:
		height, ok := parseHeight(ref)
		if !ok {
			return nil, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
				"field":  "hashOrHeight",
				"reason": "expected a block hash or height",
			})
		}
		block, err = client.BlockByNumber(ctx, hexutil.EncodeBig(height))
	}
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, connerr.BlockNotFound(string(n.id), hashOrHeight)
	}
	return block, nil
}

// Transaction looks up a transaction and, once mined, its receipt.
func (n *Network) Transaction(ctx context.Context, nodeURL, txID string) (*chain.TxLookup, error) {
	client := n.Client(nodeURL)

	tx, err := client.TransactionByHash(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return &chain.TxLookup{State: chain.TxNotFound}, nil
	}
	if tx["blockNumber"] == nil {
		return &chain.TxLookup{State: chain.TxPending, Tx: tx}, nil
	}

	// The transaction is known at this point, so a failed receipt lookup
	// degrades to a pending result instead of losing it.
	receipt, err := client.TransactionReceipt(ctx, txID)
	if err != nil {
		return &chain.TxLookup{State: chain.TxPending, Tx: tx, ReceiptErr: err}, nil
	}
	if receipt == nil {
		return &chain.TxLookup{State: chain.TxPending, Tx: tx}, nil
	}
	return &chain.TxLookup{State: chain.TxFound, Tx: tx, Receipt: receipt}, nil
}

// ReadContract performs an eth_call and decodes the result. Address
// arguments and results use the chain's display form.
func (n *Network) ReadContract(ctx context.Context, nodeURL string, call chain.ContractCall) (any, error) {
	to, err := hexAddress(n.codec, "contractAddress", call.Contract)
	if err != nil {
		return nil, err
	}
	method, err := contract.Resolve(call.ABI, call.Method, len(call.Args))
	if err != nil {
		return nil, err
	}
	args, err := contract.Coerce(method.Inputs, call.Args, n.codec.Hex)
	if err != nil {
		return nil, err
	}
	data, err := method.Pack(args...)
	if err != nil {
		return nil, err
	}

	out, err := n.Client(nodeURL).EthCall(ctx, rpc.CallMsg{To: to.Hex(), Data: data}, "latest")
	if err != nil {
		return nil, err
	}
	return method.Decode(out, n.formatAddress)
}

// formatAddress renders a decoded address in the chain's display form.
func (n *Network) formatAddress(addr common.Address) string {
	display, err := n.codec.Normalize(addr.Hex())
	if err != nil {
		return addr.Hex()
	}
	return display
}

// parseHeight accepts decimal or 0x hex block heights.
func parseHeight(s string) (*big.Int, bool) {
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	h, ok := new(big.Int).SetString(s, base)
	if !ok || h.Sign() < 0 {
		return nil, false
	}
	return h, true
}

// ContractAddress returns the address created by a deploy transaction,
// or "" while the receipt is not available.
func (n *Network) ContractAddress(ctx context.Context, nodeURL, txID string) (string, error) {
	receipt, err := n.Client(nodeURL).TransactionReceipt(ctx, txID)
	if err != nil {
		return "", err
	}
	if receipt == nil {
		return "", nil
	}
	addr, ok := receipt["contractAddress"].(string)
	if !ok || addr == "" {
		return "", fmt.Errorf("%w: transaction %s did not create a contract", connerr.ErrNotFound, txID)
	}
	return n.codec.Normalize(addr)
}
