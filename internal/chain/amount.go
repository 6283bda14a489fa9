package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// ToBaseUnits scales a decimal amount ("1.5") to integer base units using
// the given number of decimals. Amounts with more precision than decimals,
// negative amounts and malformed strings are rejected.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	raw := strings.TrimSpace(amount)
	d, err := decimal.NewFromString(raw)
	if err != nil || raw == "" {
		return nil, invalidAmount(amount, "not a decimal number")
	}
	if d.IsNegative() {
		return nil, invalidAmount(amount, "amount must not be negative")
	}

	scaled := d.Shift(int32(decimals)) //nolint:gosec // decimals is validated to 0..36
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, invalidAmount(amount, "too many decimal places")
	}
	return scaled.BigInt(), nil
}

// ToBaseUnitsList scales every amount of a batch.
func ToBaseUnitsList(amounts []string, decimals int) ([]*big.Int, error) {
	out := make([]*big.Int, 0, len(amounts))
	for _, a := range amounts {
		v, err := ToBaseUnits(a, decimals)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FromBaseUnits formats integer base units as a decimal string without
// trailing zeros. A nil amount formats as "0".
func FromBaseUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String() //nolint:gosec // small constant decimals
}

// ParseTokenID parses a decimal or 0x hex token ID.
func ParseTokenID(field, s string) (*big.Int, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil, MissingField(field)
	}
	base := 10
	if strings.HasPrefix(v, "0x") {
		v, base = v[2:], 16
	}
	id, ok := new(big.Int).SetString(v, base)
	if !ok || id.Sign() < 0 {
		return nil, InvalidField(field, "token ID must be a non-negative integer")
	}
	return id, nil
}

// ParseTokenIDs parses a non-empty list of token IDs.
func ParseTokenIDs(field string, values []string) ([]*big.Int, error) {
	if len(values) == 0 {
		return nil, MissingField(field)
	}
	out := make([]*big.Int, 0, len(values))
	for _, v := range values {
		id, err := ParseTokenID(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func invalidAmount(amount, reason string) error {
	return connerr.WithDetails(connerr.ErrInvalidAmount, map[string]string{
		"amount": amount,
		"reason": reason,
	})
}
