package evm

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

const (
	// xdcPrefix replaces 0x in XDC Network display addresses.
	xdcPrefix = "xdc"
	// harmonyHRP is the bech32 human-readable part of Harmony addresses.
	harmonyHRP = "one"
)

// Compile-time interface checks
var (
	_ chain.AddressCodec = HexCodec{}
	_ chain.AddressCodec = XDCCodec{}
	_ chain.AddressCodec = HarmonyCodec{}
)

// CodecFor returns the address codec of an EVM chain.
func CodecFor(id chain.ID) chain.AddressCodec {
	switch id {
	case chain.XDC:
		return XDCCodec{}
	case chain.ONE:
		return HarmonyCodec{}
	default:
		return HexCodec{}
	}
}

// IsValidAddress checks if the address is a valid 0x hex address.
// This validates the format (40 hex chars with 0x prefix) but does not validate checksum.
func IsValidAddress(address string) bool {
	if len(address) != 42 {
		return false
	}
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	for _, c := range address[2:] {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

// ToChecksumAddress converts an address to EIP-55 checksum format.
// If the input is invalid, it returns the original input unchanged.
func ToChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}

	addr := strings.ToLower(address[2:])

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(addr))
	hash := hex.EncodeToString(hasher.Sum(nil))

	result := make([]byte, 42)
	result[0] = '0'
	result[1] = 'x'

	for i := 0; i < 40; i++ {
		c := addr[i]
		// If the hash nibble is >= 8, uppercase the character
		if hash[i] >= '8' && c >= 'a' && c <= 'f' {
			//nolint:gosec // Safe: i bounded by loop [0,40), result size is 42
			result[i+2] = c - 32
		} else {
			//nolint:gosec // Safe: i bounded by loop [0,40), result size is 42
			result[i+2] = c
		}
	}

	return string(result)
}

// ValidateChecksumAddress validates that an address has a correct EIP-55 checksum.
// All lowercase and all uppercase addresses are considered valid (non-checksummed).
func ValidateChecksumAddress(address string) error {
	if !IsValidAddress(address) {
		return invalidAddress(address)
	}

	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}

	expected := ToChecksumAddress(address)
	if address != expected {
		return connerr.WithDetails(connerr.ErrInvalidAddress, map[string]string{
			"expected": expected,
			"actual":   address,
		})
	}
	return nil
}

// HexCodec handles plain 0x addresses (ETH, BSC, CELO, MATIC).
type HexCodec struct{}

// Normalize returns the EIP-55 checksum form.
func (HexCodec) Normalize(address string) (string, error) {
	if err := ValidateChecksumAddress(address); err != nil {
		return "", err
	}
	return ToChecksumAddress(address), nil
}

// Hex returns the EIP-55 checksum form.
func (c HexCodec) Hex(address string) (string, error) {
	return c.Normalize(address)
}

// XDCCodec handles XDC Network addresses, displayed with an "xdc" prefix.
// Both "xdc" and "0x" input forms are accepted.
type XDCCodec struct{}

// Normalize returns the xdc-prefixed checksum form.
func (c XDCCodec) Normalize(address string) (string, error) {
	h, err := c.Hex(address)
	if err != nil {
		return "", err
	}
	return xdcPrefix + h[2:], nil
}

// Hex returns the 0x checksum form.
func (XDCCodec) Hex(address string) (string, error) {
	if len(address) > 3 && strings.EqualFold(address[:3], xdcPrefix) {
		address = "0x" + address[3:]
	}
	if !IsValidAddress(address) {
		return "", invalidAddress(address)
	}
	return ToChecksumAddress(address), nil
}

// HarmonyCodec handles Harmony addresses, displayed as bech32 "one1...".
// Both bech32 and 0x input forms are accepted.
type HarmonyCodec struct{}

// Normalize returns the bech32 form.
func (c HarmonyCodec) Normalize(address string) (string, error) {
	h, err := c.Hex(address)
	if err != nil {
		return "", err
	}
	conv, err := bech32.ConvertBits(common.HexToAddress(h).Bytes(), 8, 5, true)
	if err != nil {
		return "", invalidAddress(address)
	}
	encoded, err := bech32.Encode(harmonyHRP, conv)
	if err != nil {
		return "", invalidAddress(address)
	}
	return encoded, nil
}

// Hex returns the 0x checksum form.
func (HarmonyCodec) Hex(address string) (string, error) {
	if IsValidAddress(address) {
		return ToChecksumAddress(address), nil
	}
	hrp, data, err := bech32.Decode(address)
	if err != nil || hrp != harmonyHRP {
		return "", invalidAddress(address)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil || len(raw) != common.AddressLength {
		return "", invalidAddress(address)
	}
	return common.BytesToAddress(raw).Hex(), nil
}

// hexAddress converts a display address to a go-ethereum address.
func hexAddress(codec chain.AddressCodec, field, address string) (common.Address, error) {
	if address == "" {
		return common.Address{}, chain.MissingField(field)
	}
	h, err := codec.Hex(address)
	if err != nil {
		return common.Address{}, connerr.WithDetails(connerr.ErrInvalidAddress, map[string]string{
			"field":   field,
			"address": address,
		})
	}
	return common.HexToAddress(h), nil
}

func hexAddresses(codec chain.AddressCodec, field string, addresses []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(addresses))
	for _, a := range addresses {
		addr, err := hexAddress(codec, field, a)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func invalidAddress(address string) error {
	return connerr.WithDetails(connerr.ErrInvalidAddress, map[string]string{
		"address": address,
	})
}

// isHexChar returns true if c is a valid hexadecimal character.
func isHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
