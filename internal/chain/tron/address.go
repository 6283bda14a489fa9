package tron

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// addressPrefix is the version byte of TRON mainnet and testnet addresses.
const addressPrefix byte = 0x41

var _ chain.AddressCodec = Codec{}

// Codec converts between base58check T... addresses and hex.
// Both display and 41-prefixed hex input forms are accepted.
type Codec struct{}

// Normalize returns the base58check form.
func (Codec) Normalize(address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	return encodeAddress(addr), nil
}

// Hex returns the 0x-prefixed 20-byte form used in ABI arguments.
func (Codec) Hex(address string) (string, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// parseAddress accepts T... base58check, 41-prefixed hex and 0x hex addresses.
func parseAddress(address string) (common.Address, error) {
	s := strings.TrimSpace(address)
	switch {
	case len(s) == 42 && strings.HasPrefix(s, "41"):
		raw, err := hex.DecodeString(s[2:])
		if err != nil {
			return common.Address{}, invalidAddress(address)
		}
		return common.BytesToAddress(raw), nil
	case len(s) == 42 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")):
		if !common.IsHexAddress(s) {
			return common.Address{}, invalidAddress(address)
		}
		return common.HexToAddress(s), nil
	}

	payload, version, err := base58.CheckDecode(s)
	if err != nil || version != addressPrefix || len(payload) != common.AddressLength {
		return common.Address{}, invalidAddress(address)
	}
	return common.BytesToAddress(payload), nil
}

// encodeAddress renders a 20-byte address as base58check.
func encodeAddress(addr common.Address) string {
	return base58.CheckEncode(addr.Bytes(), addressPrefix)
}

// wireAddress renders an address in the 41-prefixed hex form of the /wallet API.
func wireAddress(addr common.Address) string {
	return hex.EncodeToString(append([]byte{addressPrefix}, addr.Bytes()...))
}

// displayAddress converts a 41-prefixed hex address from a node response to
// base58check. Values that do not parse are returned unchanged.
func displayAddress(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	addr, err := parseAddress(s)
	if err != nil {
		return v
	}
	return encodeAddress(addr)
}

func invalidAddress(address string) error {
	return connerr.WithDetails(connerr.ErrInvalidAddress, map[string]string{
		"address": address,
		"chain":   string(chain.TRON),
	})
}
