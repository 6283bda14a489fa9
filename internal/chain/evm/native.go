package evm

import (
	"context"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
)

// transferNative sends the chain's native coin, with optional data.
func (n *Network) transferNative(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
	if err != nil {
		return "", err
	}
	value, err := amount("amount", req.Amount, n.id.NativeDecimals())
	if err != nil {
		return "", err
	}
	data, err := parseData(req.Data)
	if err != nil {
		return "", err
	}

	fallback := GasLimitNativeTransfer
	if len(data) > 0 {
		fallback = 0
	}
	return n.build(ctx, req, target, s, txCall{to: &to, value: value, data: data, gasLimit: fallback})
}

// invokeContract calls an arbitrary contract method described by the
// caller's ABI, optionally sending native value with it.
func (n *Network) invokeContract(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "contractAddress", req.ContractAddress)
	if err != nil {
		return "", err
	}
	if req.MethodName == "" {
		return "", chain.MissingField("methodName")
	}

	method, err := contract.Resolve(string(req.MethodABI), req.MethodName, len(req.Params))
	if err != nil {
		return "", err
	}
	args, err := contract.Coerce(method.Inputs, req.Params, n.codec.Hex)
	if err != nil {
		return "", err
	}
	data, err := method.Pack(args...)
	if err != nil {
		return "", err
	}
	value, err := optionalAmount(req.Amount, n.id.NativeDecimals())
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &to, value: value, data: data})
}
