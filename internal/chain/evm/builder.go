package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/evm/rpc"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

const (
	// GasLimitNativeTransfer is the gas limit for plain value transfers.
	GasLimitNativeTransfer uint64 = 21000
	// GasLimitTokenTransfer is the typical gas limit for ERC-20 transfers.
	GasLimitTokenTransfer uint64 = 65000

	// gweiDecimals scales fee gas prices given in gwei to wei.
	gweiDecimals = 9
)

// UnsignedTx is the payload stored in the KMS for deferred signing.
// Amounts are decimal wei strings and addresses are 0x hex.
type UnsignedTx struct {
	ChainID  string  `json:"chainId"`
	From     string  `json:"from,omitempty"`
	To       string  `json:"to,omitempty"`
	Value    string  `json:"value"`
	Data     string  `json:"data,omitempty"`
	GasLimit uint64  `json:"gasLimit"`
	GasPrice string  `json:"gasPrice"`
	Nonce    *uint64 `json:"nonce,omitempty"`
}

// txCall describes the transaction an operation wants to send.
type txCall struct {
	to       *common.Address // nil deploys a contract
	value    *big.Int
	data     []byte
	gasLimit uint64 // fallback when estimation fails; 0 requires estimation
}

// sender is the signing identity of a request.
type sender struct {
	from    common.Address
	hasFrom bool
	key     *ecdsa.PrivateKey // nil on the KMS path
}

// sender resolves who signs the request: the private key's address, or the
// declared from address when signing is deferred to the KMS.
func (n *Network) sender(req *chain.Request) (*sender, error) {
	if req.FromPrivateKey == "" && req.SignatureID == "" {
		return nil, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
			"field":  "fromPrivateKey",
			"reason": "fromPrivateKey or signatureId is required",
		})
	}
	if req.UsesKMS() {
		if req.From == "" {
			return &sender{}, nil
		}
		from, err := hexAddress(n.codec, "from", req.From)
		if err != nil {
			return nil, err
		}
		return &sender{from: from, hasFrom: true}, nil
	}

	key, err := parsePrivateKey(req.FromPrivateKey)
	if err != nil {
		return nil, err
	}
	return &sender{from: crypto.PubkeyToAddress(key.PublicKey), hasFrom: true, key: key}, nil
}

// requireFrom returns the sender address for operations that encode it in
// call data, such as safeTransferFrom.
func (s *sender) requireFrom() (common.Address, error) {
	if !s.hasFrom {
		return common.Address{}, chain.MissingField("from")
	}
	return s.from, nil
}

// build fills in gas and nonce, then either signs the transaction or
// serializes it unsigned for the KMS.
func (n *Network) build(ctx context.Context, req *chain.Request, target chain.Endpoint, s *sender, call txCall) (chain.TransactionData, error) {
	client := n.Client(target.NodeURL)

	chainID, err := n.ChainID(ctx, target)
	if err != nil {
		return "", err
	}

	value := call.value
	if value == nil {
		value = big.NewInt(0)
	}

	gasPrice, err := n.gasPrice(ctx, client, req.Fee)
	if err != nil {
		return "", err
	}

	msg := rpc.CallMsg{Value: value, Data: call.data}
	if s.hasFrom {
		msg.From = s.from.Hex()
	}
	if call.to != nil {
		msg.To = call.to.Hex()
	}
	gasLimit, err := n.gasLimit(ctx, client, req.Fee, msg, call.gasLimit)
	if err != nil {
		return "", err
	}

	nonce := req.Nonce
	if nonce == nil && s.hasFrom {
		pending, nonceErr := client.GetTransactionCount(ctx, s.from.Hex(), "pending")
		if nonceErr != nil {
			return "", fmt.Errorf("getting nonce: %w", nonceErr)
		}
		nonce = &pending
	}

	if s.key == nil {
		return unsignedData(chainID, s, call.to, value, call.data, gasLimit, gasPrice, nonce)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    *nonce,
		To:       call.to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     call.data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), s.key)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encoding transaction: %w", err)
	}
	return chain.TransactionData(hexutil.Encode(raw)), nil
}

func unsignedData(chainID *big.Int, s *sender, to *common.Address, value *big.Int, data []byte, gasLimit uint64, gasPrice *big.Int, nonce *uint64) (chain.TransactionData, error) {
	utx := UnsignedTx{
		ChainID:  chainID.String(),
		Value:    value.String(),
		GasLimit: gasLimit,
		GasPrice: gasPrice.String(),
		Nonce:    nonce,
	}
	if s.hasFrom {
		utx.From = s.from.Hex()
	}
	if to != nil {
		utx.To = to.Hex()
	}
	if len(data) > 0 {
		utx.Data = hexutil.Encode(data)
	}
	encoded, err := json.Marshal(utx)
	if err != nil {
		return "", fmt.Errorf("encoding unsigned transaction: %w", err)
	}
	return chain.TransactionData(encoded), nil
}

// gasPrice returns the fee's gas price (gwei) in wei, or the node's price.
func (n *Network) gasPrice(ctx context.Context, client *rpc.Client, fee *chain.Fee) (*big.Int, error) {
	if fee != nil && fee.GasPrice != "" {
		wei, err := chain.ToBaseUnits(fee.GasPrice, gweiDecimals)
		if err != nil {
			return nil, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
				"field":  "fee.gasPrice",
				"reason": err.Error(),
			})
		}
		return wei, nil
	}
	price, err := client.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	return price, nil
}

// gasLimit returns the fee's gas limit, the node's estimate, or the
// operation's fallback when estimation fails.
func (n *Network) gasLimit(ctx context.Context, client *rpc.Client, fee *chain.Fee, msg rpc.CallMsg, fallback uint64) (uint64, error) {
	if fee != nil && fee.GasLimit != "" {
		limit, err := strconv.ParseUint(strings.TrimSpace(fee.GasLimit), 10, 64)
		if err != nil || limit == 0 {
			return 0, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
				"field":  "fee.gasLimit",
				"reason": "gas limit must be a positive integer",
			})
		}
		return limit, nil
	}
	limit, err := client.EstimateGas(ctx, msg)
	if err != nil {
		if fallback > 0 {
			return fallback, nil
		}
		return 0, fmt.Errorf("estimating gas: %w", err)
	}
	return limit, nil
}

// parsePrivateKey decodes a hex private key. The decoded bytes are zeroed
// once the key is parsed.
func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	raw, err := hexutil.Decode(ensureHexPrefix(strings.TrimSpace(hexKey)))
	if err != nil {
		return nil, invalidKey()
	}
	defer zeroBytes(raw)

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, invalidKey()
	}
	return key, nil
}

func invalidKey() error {
	// The key itself is never echoed back.
	return connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
		"field":  "fromPrivateKey",
		"reason": "not a valid secp256k1 private key",
	})
}

// zeroBytes zeros out a byte slice holding key material.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func ensureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// parseData decodes transaction data: 0x-prefixed input is hex, anything
// else is taken as UTF-8 text.
func parseData(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") {
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
				"field":  "data",
				"reason": "invalid hex data",
			})
		}
		return b, nil
	}
	return []byte(s), nil
}

// amount scales a required decimal amount to base units.
func amount(field, value string, decimals int) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, chain.MissingField(field)
	}
	return chain.ToBaseUnits(value, decimals)
}

// optionalAmount scales an optional native value; empty means zero.
func optionalAmount(value string, decimals int) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return big.NewInt(0), nil
	}
	return chain.ToBaseUnits(value, decimals)
}
