package tron

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// blockIDLength separates block IDs from heights: anything longer is an ID.
const blockIDLength = 32

// Broadcast submits a signed transaction. Expired transactions are rejected
// before they reach the node.
func (n *Network) Broadcast(ctx context.Context, nodeURL string, data chain.TransactionData) (string, error) {
	tx, err := parseTransaction(string(data))
	if err != nil {
		return "", err
	}
	expiration, err := tx.Expiration()
	if err != nil {
		return "", err
	}
	if n.opts.Now().After(expiration) {
		return "", connerr.WithDetails(ErrExpired, map[string]string{"txId": tx.TxID})
	}

	const path = "/wallet/broadcasttransaction"
	var resp struct {
		Result  bool   `json:"result"`
		TxID    string `json:"txid"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err = n.Client(nodeURL).PostInto(ctx, path, tx, &resp); err != nil {
		return "", err
	}
	if !resp.Result {
		return "", connerr.WithDetails(ErrResponse, map[string]string{
			"code":    resp.Code,
			"message": nodeMessage(resp.Message),
		})
	}
	if resp.TxID == "" {
		return tx.TxID, nil
	}
	return resp.TxID, nil
}

// Block returns a flattened block by ID or height.
func (n *Network) Block(ctx context.Context, nodeURL, hashOrHeight string) (map[string]any, error) {
	ref := strings.TrimSpace(hashOrHeight)
	client := n.Client(nodeURL)

	var (
		raw map[string]any
		err error
	)
	if len(ref) > blockIDLength {
		raw, err = client.Post(ctx, "/wallet/getblockbyid", map[string]any{"value": ref})
	} else {
		height, convErr := strconv.ParseInt(ref, 10, 64)
		if convErr != nil || height < 0 {
			return nil, chain.InvalidField("hashOrHeight", "expected a block ID or height")
		}
		raw, err = client.Post(ctx, "/wallet/getblockbynum", map[string]any{"num": height})
	}
	if err != nil {
		return nil, err
	}
	if _, ok := raw["blockID"]; !ok {
		return nil, connerr.BlockNotFound(string(chain.TRON), hashOrHeight)
	}
	return flattenBlock(raw), nil
}

// Transaction looks up a transaction and its execution info concurrently.
// Only the transaction lookup can fail the call; an info error leaves the
// transaction pending.
func (n *Network) Transaction(ctx context.Context, nodeURL, txID string) (*chain.TxLookup, error) {
	client := n.Client(nodeURL)
	body := map[string]any{"value": txID}

	var (
		tx, info map[string]any
		infoErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tx, err = client.Post(gctx, "/wallet/gettransactionbyid", body)
		return err
	})
	g.Go(func() error {
		info, infoErr = client.Post(gctx, "/wallet/gettransactioninfobyid", body)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if _, ok := tx["txID"]; !ok {
		return &chain.TxLookup{State: chain.TxNotFound}, nil
	}
	flat := flattenTx(tx)
	if infoErr != nil {
		return &chain.TxLookup{State: chain.TxPending, Tx: flat, ReceiptErr: infoErr}, nil
	}
	if _, ok := info["blockNumber"]; !ok {
		return &chain.TxLookup{State: chain.TxPending, Tx: flat}, nil
	}
	return &chain.TxLookup{State: chain.TxFound, Tx: flat, Receipt: flattenInfo(info)}, nil
}

// ReadContract performs a constant contract call. Address results are
// rendered in base58check.
func (n *Network) ReadContract(ctx context.Context, nodeURL string, c chain.ContractCall) (any, error) {
	token, err := n.address("contractAddress", c.Contract)
	if err != nil {
		return nil, err
	}
	method, err := contract.Resolve(c.ABI, c.Method, len(c.Args))
	if err != nil {
		return nil, err
	}
	args, err := contract.Coerce(method.Inputs, c.Args, n.codec.Hex)
	if err != nil {
		return nil, err
	}
	return n.constantCall(ctx, nodeURL, token, method, args)
}

func (n *Network) constantCall(ctx context.Context, nodeURL string, token common.Address, method *contract.Method, args []any) (any, error) {
	params, err := method.PackArgs(args...)
	if err != nil {
		return nil, err
	}

	const path = "/wallet/triggerconstantcontract"
	var resp triggerResult
	err = n.Client(nodeURL).PostInto(ctx, path, triggerRequest{
		OwnerAddress:     wireAddress(token),
		ContractAddress:  wireAddress(token),
		FunctionSelector: method.Sig,
		Parameter:        hex.EncodeToString(params),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Result.Result || len(resp.ConstantResult) == 0 {
		return nil, resp.err(path)
	}
	out, err := hex.DecodeString(resp.ConstantResult[0])
	if err != nil {
		return nil, resp.err(path)
	}
	return method.Decode(out, encodeAddress)
}

// ContractAddress returns the address created by a deploy transaction,
// or "" while it is not yet confirmed.
func (n *Network) ContractAddress(ctx context.Context, nodeURL, txID string) (string, error) {
	info, err := n.Client(nodeURL).Post(ctx, "/wallet/gettransactioninfobyid", map[string]any{"value": txID})
	if err != nil {
		return "", err
	}
	if _, ok := info["blockNumber"]; !ok {
		return "", nil
	}
	addr, ok := displayAddress(info["contract_address"]).(string)
	if !ok || addr == "" {
		return "", connerr.TransactionNotFound(string(chain.TRON), txID)
	}
	return addr, nil
}

func flattenBlock(raw map[string]any) map[string]any {
	header := object(raw["block_header"])
	data := object(header["raw_data"])

	txs := make([]any, 0)
	if list, ok := raw["transactions"].([]any); ok {
		for _, t := range list {
			txs = append(txs, flattenTx(object(t)))
		}
	}
	return map[string]any{
		"blockNumber":      data["number"],
		"hash":             raw["blockID"],
		"parentHash":       data["parentHash"],
		"timestamp":        data["timestamp"],
		"witnessAddress":   data["witness_address"],
		"witnessSignature": header["witness_signature"],
		"transactions":     txs,
	}
}

// flattenTx lifts the common fields of a transaction and adds base58 forms
// of the contract parameter addresses.
func flattenTx(t map[string]any) map[string]any {
	raw := object(t["raw_data"])
	if contracts, ok := raw["contract"].([]any); ok {
		for _, c := range contracts {
			param := object(object(c)["parameter"])
			value := object(param["value"])
			for _, key := range []string{"owner_address", "to_address", "contract_address"} {
				if v, ok := value[key]; ok {
					value[camel(key)+"Base58"] = displayAddress(v)
				}
			}
		}
	}
	return map[string]any{
		"txID":      t["txID"],
		"ret":       t["ret"],
		"signature": t["signature"],
		"rawData":   raw,
	}
}

// flattenInfo merges the receipt of a transaction info into one level.
func flattenInfo(info map[string]any) map[string]any {
	out := map[string]any{
		"blockNumber":    info["blockNumber"],
		"blockTimeStamp": info["blockTimeStamp"],
		"fee":            info["fee"],
	}
	if v, ok := info["contract_address"]; ok {
		out["contractAddress"] = v
	}
	for k, v := range object(info["receipt"]) {
		out[camel(k)] = v
	}
	if logs, ok := info["log"]; ok {
		out["log"] = logs
	}
	if internal, ok := info["internal_transactions"]; ok {
		out["internalTransactions"] = internal
	}
	return out
}

// object returns v as a JSON object, or an empty one.
func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// camel converts snake_case keys to camelCase.
func camel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
