package cardano

import (
	"context"
	"strconv"
	"strings"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/gateway"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// blockHashLength is the length of a hex block or transaction hash.
const blockHashLength = 64

const blockQuery = `query block($where: Block_bool_exp) {
  blocks(where: $where, limit: 1) {
    hash number forgedAt slotNo epochNo fees size transactionsCount
    previousBlock { hash }
    transactions { hash }
  }
}`

const transactionQuery = `query transaction($hash: Hash32Hex!) {
  transactions(where: { hash: { _eq: $hash } }, limit: 1) {
    hash blockIndex includedAt fee deposit size totalOutput
    block { hash number }
    inputs { address value sourceTxHash sourceTxIndex }
    outputs { address index value }
  }
}`

var _ chain.BlockReader = (*Network)(nil)

// Block returns a block by hash or height.
func (n *Network) Block(ctx context.Context, nodeURL, hashOrHeight string) (map[string]any, error) {
	ref := strings.TrimSpace(hashOrHeight)
	var where map[string]any
	if height, err := strconv.ParseUint(ref, 10, 64); err == nil {
		where = map[string]any{"number": map[string]any{"_eq": height}}
	} else if len(ref) == blockHashLength {
		where = map[string]any{"hash": map[string]any{"_eq": ref}}
	} else {
		return nil, chain.InvalidField("hashOrHeight", "expected a block hash or height")
	}

	var data struct {
		Blocks []map[string]any `json:"blocks"`
	}
	if err := n.query(ctx, nodeURL, blockQuery, map[string]any{"where": where}, &data); err != nil {
		return nil, err
	}
	if len(data.Blocks) == 0 {
		return nil, connerr.BlockNotFound(string(chain.ADA), hashOrHeight)
	}

	block := data.Blocks[0]
	if prev, ok := block["previousBlock"].(map[string]any); ok {
		block["previousBlock"] = prev["hash"]
	}
	return block, nil
}

// Transaction looks up a transaction. cardano-graphql indexes only
// transactions that made it into a block, so a hit is always found.
func (n *Network) Transaction(ctx context.Context, nodeURL, txID string) (*chain.TxLookup, error) {
	hash := strings.TrimSpace(txID)
	if len(hash) != blockHashLength {
		return &chain.TxLookup{State: chain.TxNotFound}, nil
	}

	var data struct {
		Transactions []map[string]any `json:"transactions"`
	}
	if err := n.query(ctx, nodeURL, transactionQuery, map[string]any{"hash": hash}, &data); err != nil {
		return nil, err
	}
	if len(data.Transactions) == 0 {
		return &chain.TxLookup{State: chain.TxNotFound}, nil
	}

	tx := data.Transactions[0]
	receipt := map[string]any{
		"includedAt": tx["includedAt"],
		"fee":        tx["fee"],
	}
	if block, ok := tx["block"].(map[string]any); ok {
		receipt["blockHash"] = block["hash"]
		receipt["blockNumber"] = block["number"]
		delete(tx, "block")
	}
	return &chain.TxLookup{State: chain.TxFound, Tx: tx, Receipt: receipt}, nil
}

// query runs a GraphQL operation and decodes its data member into data.
func (n *Network) query(ctx context.Context, nodeURL, query string, vars map[string]any, data any) error {
	resp := struct {
		Data   any            `json:"data"`
		Errors []graphQLError `json:"errors"`
	}{Data: data}
	if err := n.client.Post(ctx, nodeURL, "", graphQLRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return connerr.WithDetails(gateway.ErrResponse, map[string]string{"message": resp.Errors[0].Message})
	}
	return nil
}
