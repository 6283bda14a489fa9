package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
	"github.com/mrz1836/connector/internal/chain/evm/rpc"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

//nolint:gochecknoglobals // Fixed ABI methods
var (
	erc20TransferFn = contract.StandardMethod(contract.ERC20, "transfer")
	erc20MintFn     = contract.StandardMethod(contract.ERC20, "mint")
	erc20BurnFn     = contract.StandardMethod(contract.ERC20, "burn")
	erc20DecimalsFn = contract.StandardMethod(contract.ERC20, "decimals")
)

// tokenDecimals returns the caller's digits, or reads decimals() from the
// token contract.
func (n *Network) tokenDecimals(ctx context.Context, target chain.Endpoint, token common.Address, digits *int) (int, error) {
	if digits != nil {
		return *digits, nil
	}
	data, err := erc20DecimalsFn.Pack()
	if err != nil {
		return 0, err
	}
	out, err := n.Client(target.NodeURL).EthCall(ctx, rpc.CallMsg{To: token.Hex(), Data: data}, "latest")
	if err != nil {
		return 0, fmt.Errorf("reading token decimals: %w", err)
	}
	decoded, err := erc20DecimalsFn.Decode(out, nil)
	if err != nil {
		return 0, fmt.Errorf("reading token decimals: %w", err)
	}
	d, ok := decoded.(uint8)
	if !ok {
		return 0, fmt.Errorf("reading token decimals: unexpected %T", decoded)
	}
	return int(d), nil
}

func (n *Network) erc20Transfer(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	return n.erc20AmountCall(ctx, req, target, erc20TransferFn, true, GasLimitTokenTransfer)
}

func (n *Network) erc20Mint(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	return n.erc20AmountCall(ctx, req, target, erc20MintFn, true, 0)
}

func (n *Network) erc20Burn(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	return n.erc20AmountCall(ctx, req, target, erc20BurnFn, false, 0)
}

// erc20AmountCall packs method(to, amount) or method(amount) against the
// token in req.ContractAddress, scaling the amount by the token decimals.
func (n *Network) erc20AmountCall(ctx context.Context, req *chain.Request, target chain.Endpoint, method *contract.Method, withRecipient bool, fallback uint64) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	token, err := hexAddress(n.codec, "contractAddress", req.ContractAddress)
	if err != nil {
		return "", err
	}

	var args []any
	if withRecipient {
		to, toErr := hexAddress(n.codec, "to", req.To)
		if toErr != nil {
			return "", toErr
		}
		args = append(args, to)
	}

	decimals, err := n.tokenDecimals(ctx, target, token, req.Digits)
	if err != nil {
		return "", err
	}
	value, err := amount("amount", req.Amount, decimals)
	if err != nil {
		return "", err
	}
	args = append(args, value)

	data, err := method.Pack(args...)
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &token, data: data, gasLimit: fallback})
}

// erc20Deploy deploys the caller's token bytecode with the standard
// constructor (name, symbol, receiver, digits, totalCap, supply).
func (n *Network) erc20Deploy(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	bytecode, err := deployBytecode(req)
	if err != nil {
		return "", err
	}
	if req.Name == "" {
		return "", chain.MissingField("name")
	}
	if req.Symbol == "" {
		return "", chain.MissingField("symbol")
	}
	if req.Digits == nil {
		return "", chain.MissingField("digits")
	}

	// The initial supply goes to "to", or to the deployer.
	receiver := s.from
	if req.To != "" || !s.hasFrom {
		if receiver, err = hexAddress(n.codec, "to", req.To); err != nil {
			return "", err
		}
	}

	supply, err := amount("supply", req.Supply, *req.Digits)
	if err != nil {
		return "", err
	}
	totalCap := supply
	if req.TotalCap != "" {
		if totalCap, err = chain.ToBaseUnits(req.TotalCap, *req.Digits); err != nil {
			return "", err
		}
	}
	if totalCap.Cmp(supply) < 0 {
		return "", connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
			"field":  "totalCap",
			"reason": "totalCap must not be lower than supply",
		})
	}

	data, err := contract.PackDeploy(contract.MustLookup(contract.ERC20), bytecode,
		req.Name, req.Symbol, receiver, uint8(*req.Digits), totalCap, supply) //nolint:gosec // digits validated to 0..36
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{data: data})
}

// deployBytecode decodes the caller-supplied contract bytecode.
func deployBytecode(req *chain.Request) ([]byte, error) {
	if req.Bytecode == "" {
		return nil, chain.MissingField("bytecode")
	}
	b, err := parseData(ensureHexPrefix(req.Bytecode))
	if err != nil {
		return nil, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
			"field":  "bytecode",
			"reason": "invalid hex bytecode",
		})
	}
	return b, nil
}
