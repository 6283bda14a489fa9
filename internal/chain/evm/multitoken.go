package evm

import (
	"context"
	"math/big"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
)

//nolint:gochecknoglobals // Fixed ABI methods
var (
	mtSafeTransferFromFn      = contract.StandardMethod(contract.ERC1155, "safeTransferFrom")
	mtSafeBatchTransferFromFn = contract.StandardMethod(contract.ERC1155, "safeBatchTransferFrom")
	mtMintFn                  = contract.StandardMethod(contract.ERC1155, "mint")
	mtMintBatchFn             = contract.StandardMethod(contract.ERC1155, "mintBatch")
	mtBurnFn                  = contract.StandardMethod(contract.ERC1155, "burn")
	mtBurnBatchFn             = contract.StandardMethod(contract.ERC1155, "burnBatch")
)

// Multi-token amounts are whole token counts.
const multiTokenDecimals = 0

// mtCall describes the operands shared by multi-token operations.
type mtCall struct {
	sender  *sender
	tx      *txCall
	ids     []*big.Int
	amounts []*big.Int
	data    []byte
}

// multiTokenCall parses the contract, token IDs, amounts and data of a
// multi-token request. batch selects tokenIds/amounts over tokenId/amount.
func (n *Network) multiTokenCall(req *chain.Request, batch bool) (*mtCall, error) {
	s, err := n.sender(req)
	if err != nil {
		return nil, err
	}
	token, err := hexAddress(n.codec, "contractAddress", req.ContractAddress)
	if err != nil {
		return nil, err
	}
	data, err := parseData(req.Data)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}

	call := &mtCall{sender: s, tx: &txCall{to: &token}, data: data}
	if batch {
		if call.ids, err = chain.ParseTokenIDs("tokenIds", req.TokenIDs); err != nil {
			return nil, err
		}
		if err = chain.SameLength("amounts", len(call.ids), len(req.Amounts)); err != nil {
			return nil, err
		}
		if call.amounts, err = chain.ToBaseUnitsList(req.Amounts, multiTokenDecimals); err != nil {
			return nil, err
		}
		return call, nil
	}

	id, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return nil, err
	}
	value, err := amount("amount", req.Amount, multiTokenDecimals)
	if err != nil {
		return nil, err
	}
	call.ids, call.amounts = []*big.Int{id}, []*big.Int{value}
	return call, nil
}

// send packs the method and builds the transaction against the token contract.
func (n *Network) send(ctx context.Context, req *chain.Request, target chain.Endpoint, call *mtCall, method *contract.Method, args ...any) (chain.TransactionData, error) {
	data, err := method.Pack(args...)
	if err != nil {
		return "", err
	}
	call.tx.data = data
	return n.build(ctx, req, target, call.sender, *call.tx)
}

func (n *Network) mtTransfer(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	call, err := n.multiTokenCall(req, false)
	if err != nil {
		return "", err
	}
	from, err := call.sender.requireFrom()
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
	if err != nil {
		return "", err
	}
	return n.send(ctx, req, target, call, mtSafeTransferFromFn, from, to, call.ids[0], call.amounts[0], call.data)
}

func (n *Network) mtTransferBatch(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	call, err := n.multiTokenCall(req, true)
	if err != nil {
		return "", err
	}
	from, err := call.sender.requireFrom()
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
	if err != nil {
		return "", err
	}
	return n.send(ctx, req, target, call, mtSafeBatchTransferFromFn, from, to, call.ids, call.amounts, call.data)
}

func (n *Network) mtMint(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	call, err := n.multiTokenCall(req, false)
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
	if err != nil {
		return "", err
	}
	return n.send(ctx, req, target, call, mtMintFn, to, call.ids[0], call.amounts[0], call.data)
}

func (n *Network) mtMintBatch(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	call, err := n.multiTokenCall(req, true)
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
	if err != nil {
		return "", err
	}
	return n.send(ctx, req, target, call, mtMintBatchFn, to, call.ids, call.amounts, call.data)
}

// mtBurn burns from the sender's own balance.
func (n *Network) mtBurn(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	call, err := n.multiTokenCall(req, false)
	if err != nil {
		return "", err
	}
	account, err := call.sender.requireFrom()
	if err != nil {
		return "", err
	}
	return n.send(ctx, req, target, call, mtBurnFn, account, call.ids[0], call.amounts[0])
}

func (n *Network) mtBurnBatch(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	call, err := n.multiTokenCall(req, true)
	if err != nil {
		return "", err
	}
	account, err := call.sender.requireFrom()
	if err != nil {
		return "", err
	}
	return n.send(ctx, req, target, call, mtBurnBatchFn, account, call.ids, call.amounts)
}

// mtDeploy deploys the caller's ERC-1155 bytecode with the metadata URI.
func (n *Network) mtDeploy(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	bytecode, err := deployBytecode(req)
	if err != nil {
		return "", err
	}
	if req.URL == "" {
		return "", chain.MissingField("url")
	}
	data, err := contract.PackDeploy(contract.MustLookup(contract.ERC1155), bytecode, req.URL)
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{data: data})
}
