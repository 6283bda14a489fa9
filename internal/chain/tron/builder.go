package tron

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
)

const (
	// DefaultFeeLimit caps the energy fee of a contract call, in TRX.
	DefaultFeeLimit = "100"

	trxDecimals = 6
)

// sender is the owner of a transaction and, on the direct path, its key.
// TRON transactions always name their owner, so the KMS path needs req.From.
type sender struct {
	owner common.Address
	key   *ecdsa.PrivateKey
}

func (n *Network) sender(req *chain.Request) (*sender, error) {
	if req.FromPrivateKey == "" && req.SignatureID == "" {
		return nil, chain.InvalidField("fromPrivateKey", "fromPrivateKey or signatureId is required")
	}
	if req.UsesKMS() {
		if req.From == "" {
			return nil, chain.MissingField("from")
		}
		owner, err := n.address("from", req.From)
		if err != nil {
			return nil, err
		}
		return &sender{owner: owner}, nil
	}

	raw, err := hexutil.Decode(ensureHexPrefix(strings.TrimSpace(req.FromPrivateKey)))
	if err != nil {
		return nil, chain.InvalidField("fromPrivateKey", "not a valid secp256k1 private key")
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, chain.InvalidField("fromPrivateKey", "not a valid secp256k1 private key")
	}
	return &sender{owner: crypto.PubkeyToAddress(key.PublicKey), key: key}, nil
}

// address parses a required address field.
func (n *Network) address(field, value string) (common.Address, error) {
	if strings.TrimSpace(value) == "" {
		return common.Address{}, chain.MissingField(field)
	}
	addr, err := parseAddress(value)
	if err != nil {
		return common.Address{}, chain.InvalidField(field, "not a valid TRON address")
	}
	return addr, nil
}

func (n *Network) addresses(field string, values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, v := range values {
		addr, err := n.address(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// finish signs the node-built transaction, or leaves it unsigned for the KMS.
func finish(tx *Transaction, s *sender) (chain.TransactionData, error) {
	if s.key != nil {
		if err := tx.sign(s.key); err != nil {
			return "", err
		}
	} else if _, err := tx.verifyID(); err != nil {
		return "", err
	}
	encoded, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("encoding transaction: %w", err)
	}
	return chain.TransactionData(encoded), nil
}

// transferNative sends TRX through /wallet/createtransaction.
func (n *Network) transferNative(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	to, err := n.address("to", req.To)
	if err != nil {
		return "", err
	}
	sun, err := sunAmount("amount", req.Amount, true)
	if err != nil {
		return "", err
	}

	var tx Transaction
	err = n.Client(target.NodeURL).PostInto(ctx, "/wallet/createtransaction", map[string]any{
		"owner_address": wireAddress(s.owner),
		"to_address":    wireAddress(to),
		"amount":        sun,
		"visible":       false,
	}, &tx)
	if err != nil {
		return "", err
	}
	return finish(&tx, s)
}

// triggerRequest is the body of /wallet/triggersmartcontract and
// /wallet/triggerconstantcontract.
type triggerRequest struct {
	OwnerAddress     string `json:"owner_address"`
	ContractAddress  string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	Parameter        string `json:"parameter"`
	FeeLimit         int64  `json:"fee_limit,omitempty"`
	CallValue        int64  `json:"call_value,omitempty"`
	Visible          bool   `json:"visible"`
}

type triggerResult struct {
	Result struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"result"`
	Transaction    *Transaction `json:"transaction"`
	ConstantResult []string     `json:"constant_result"`
}

func (r *triggerResult) err(path string) error {
	msg := nodeMessage(r.Result.Message)
	if msg == "" {
		msg = r.Result.Code
	}
	return fmt.Errorf("%w: %s: %s", ErrResponse, path, msg)
}

// call is a contract invocation to build with triggersmartcontract.
type call struct {
	contract  common.Address
	method    *contract.Method
	args      []any
	callValue int64
}

// trigger has the node build a contract call, then signs it.
func (n *Network) trigger(ctx context.Context, req *chain.Request, target chain.Endpoint, s *sender, c call) (chain.TransactionData, error) {
	params, err := c.method.PackArgs(c.args...)
	if err != nil {
		return "", err
	}
	feeLimit := req.FeeLimit
	if feeLimit == "" {
		feeLimit = DefaultFeeLimit
	}
	fee, err := sunAmount("feeLimit", feeLimit, true)
	if err != nil {
		return "", err
	}

	const path = "/wallet/triggersmartcontract"
	var resp triggerResult
	err = n.Client(target.NodeURL).PostInto(ctx, path, triggerRequest{
		OwnerAddress:     wireAddress(s.owner),
		ContractAddress:  wireAddress(c.contract),
		FunctionSelector: c.method.Sig,
		Parameter:        hex.EncodeToString(params),
		FeeLimit:         fee,
		CallValue:        c.callValue,
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Result.Result || resp.Transaction == nil {
		return "", resp.err(path)
	}
	return finish(resp.Transaction, s)
}

// sunAmount scales a TRX amount to sun. Optional amounts default to zero.
func sunAmount(field, value string, required bool) (int64, error) {
	if strings.TrimSpace(value) == "" {
		if required {
			return 0, chain.MissingField(field)
		}
		return 0, nil
	}
	v, err := chain.ToBaseUnits(value, trxDecimals)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, chain.InvalidField(field, "amount is too large")
	}
	return v.Int64(), nil
}

// trxValues scales cashback values given in TRX.
func trxValues(values []string) ([]*big.Int, error) {
	return chain.ToBaseUnitsList(values, trxDecimals)
}

func ensureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
