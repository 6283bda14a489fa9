package tron

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// Transaction is a TRON transaction as produced by the node's create and
// trigger endpoints. raw_data is kept verbatim so the signed payload
// round-trips byte for byte.
type Transaction struct {
	Visible    bool            `json:"visible"`
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Signature  []string        `json:"signature,omitempty"`
}

// Expiration returns raw_data.expiration.
func (t *Transaction) Expiration() (time.Time, error) {
	var raw struct {
		Expiration int64 `json:"expiration"`
	}
	if err := json.Unmarshal(t.RawData, &raw); err != nil || raw.Expiration == 0 {
		return time.Time{}, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
			"field":  "txData",
			"reason": "raw_data.expiration is missing",
		})
	}
	return time.UnixMilli(raw.Expiration), nil
}

// verifyID checks that txID is the SHA-256 of raw_data_hex, so the node
// cannot hand back a transaction different from the one it identifies.
func (t *Transaction) verifyID() ([]byte, error) {
	raw, err := hex.DecodeString(t.RawDataHex)
	if err != nil {
		return nil, fmt.Errorf("%w: raw_data_hex is not hex", ErrResponse)
	}
	sum := sha256.Sum256(raw)
	if !strings.EqualFold(hex.EncodeToString(sum[:]), t.TxID) {
		return nil, fmt.Errorf("%w: txID does not match raw_data_hex", ErrResponse)
	}
	return sum[:], nil
}

// sign appends a secp256k1 signature over txID.
// The recovery byte is encoded as 27 or 28.
func (t *Transaction) sign(key *ecdsa.PrivateKey) error {
	hash, err := t.verifyID()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	t.Signature = append(t.Signature, hex.EncodeToString(sig))
	return nil
}

// parseTransaction decodes transaction data handed to the broadcaster.
func parseTransaction(data string) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal([]byte(data), &tx); err != nil || tx.TxID == "" {
		return nil, connerr.WithDetails(connerr.ErrInvalidInput, map[string]string{
			"field":  "txData",
			"reason": "expected a TRON transaction JSON object",
		})
	}
	return &tx, nil
}

// nodeMessage decodes the hex-encoded message of a failed node call.
func nodeMessage(msg string) string {
	if b, err := hex.DecodeString(msg); err == nil && len(b) > 0 {
		return string(b)
	}
	return msg
}
