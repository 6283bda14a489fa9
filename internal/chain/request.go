package chain

import (
	"encoding/json"
	"fmt"
	"strings"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// Fee overrides the node-estimated fee of an EVM transaction.
type Fee struct {
	GasLimit string `json:"gasLimit"`
	GasPrice string `json:"gasPrice"` // in gwei
}

// Request is the unsigned operation payload handed to a builder.
// Exactly one of FromPrivateKey and SignatureID selects the signing path;
// the builder rejects a request carrying neither.
type Request struct {
	From            string   `json:"from,omitempty"`
	To              string   `json:"to,omitempty"`
	Recipients      []string `json:"recipients,omitempty"`
	Amount          string   `json:"amount,omitempty"`
	Amounts         []string `json:"amounts,omitempty"`
	ContractAddress string   `json:"contractAddress,omitempty"`
	TokenID         string   `json:"tokenId,omitempty"`
	TokenIDs        []string `json:"tokenIds,omitempty"`
	URL             string   `json:"url,omitempty"`
	URLs            []string `json:"urls,omitempty"`

	// Cashback (royalty) settings of an NFT mint.
	AuthorAddresses      []string   `json:"authorAddresses,omitempty"`
	CashbackValues       []string   `json:"cashbackValues,omitempty"`
	BatchAuthorAddresses [][]string `json:"batchAuthorAddresses,omitempty"`
	BatchCashbackValues  [][]string `json:"batchCashbackValues,omitempty"`
	CashbackValue        string     `json:"cashbackValue,omitempty"`

	// Token and contract deployment.
	Digits   *int   `json:"digits,omitempty"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Supply   string `json:"supply,omitempty"`
	TotalCap string `json:"totalCap,omitempty"`
	Bytecode string `json:"bytecode,omitempty"`

	// Arbitrary contract invocation.
	MethodName string          `json:"methodName,omitempty"`
	MethodABI  json.RawMessage `json:"methodABI,omitempty"`
	Params     []any           `json:"params,omitempty"`

	Data     string  `json:"data,omitempty"`
	Fee      *Fee    `json:"fee,omitempty"`
	FeeLimit string  `json:"feeLimit,omitempty"` // TRON only, in TRX
	Nonce    *uint64 `json:"nonce,omitempty"`

	FromPrivateKey string `json:"fromPrivateKey,omitempty"`
	SignatureID    string `json:"signatureId,omitempty"`
	Index          *int   `json:"index,omitempty"`

	// Pre-signed payload for the Broadcast operation.
	TxData string `json:"txData,omitempty"`
}

// UsesKMS returns true if signing is deferred to the KMS.
func (r *Request) UsesKMS() bool {
	return r.SignatureID != ""
}

// Validate checks the request before dispatch.
func (r *Request) Validate(op Operation) error {
	if r == nil {
		return InvalidField("body", "request body is required")
	}

	if op == Broadcast {
		if strings.TrimSpace(r.TxData) == "" {
			return InvalidField("txData", "txData is required")
		}
		return nil
	}

	if r.FromPrivateKey != "" && r.SignatureID != "" {
		return InvalidField("signatureId", "fromPrivateKey and signatureId are mutually exclusive")
	}
	if r.Index != nil && *r.Index < 0 {
		return InvalidField("index", "index must not be negative")
	}
	if r.Digits != nil && (*r.Digits < 0 || *r.Digits > 36) {
		return InvalidField("digits", "digits must be between 0 and 36")
	}
	return nil
}

// InvalidField builds an ErrInvalidInput for a request field.
func InvalidField(field, reason string) error {
	return connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// MissingField reports a required request field that was left empty.
func MissingField(field string) error {
	return InvalidField(field, field+" is required")
}

// SameLength reports a batch field whose length does not match its peers.
func SameLength(field string, want, got int) error {
	if want == got {
		return nil
	}
	return InvalidField(field, fmt.Sprintf("expected %d entries, got %d", want, got))
}
