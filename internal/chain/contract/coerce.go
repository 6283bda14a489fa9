package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// AddressParser turns a chain's display address into 0x hex.
// A nil parser accepts 0x hex only.
type AddressParser func(address string) (string, error)

// AddressFormatter renders a decoded address in the chain's display form.
// A nil formatter uses EIP-55 hex.
type AddressFormatter func(address common.Address) string

// Coerce converts JSON-decoded call arguments into the Go values the ABI
// encoder expects: numbers and numeric strings become *big.Int or sized
// integers, hex strings become addresses and byte slices, and arrays are
// converted element by element.
func Coerce(inputs abi.Arguments, args []any, parse AddressParser) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, connerr.WithDetails(ErrInvalidArgument, map[string]string{
			"expected": strconv.Itoa(len(inputs)),
			"actual":   strconv.Itoa(len(args)),
		})
	}
	out := make([]any, len(args))
	for i, in := range inputs {
		v, err := coerceValue(in.Type, args[i], parse)
		if err != nil {
			name := in.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, connerr.WithDetails(ErrInvalidArgument, map[string]string{
				"argument": name,
				"type":     in.Type.String(),
				"reason":   err.Error(),
			})
		}
		out[i] = v
	}
	return out, nil
}

func coerceValue(t abi.Type, v any, parse AddressParser) (any, error) {
	switch t.T {
	case abi.AddressTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected address string, got %T", v)
		}
		if parse != nil {
			hexAddr, err := parse(s)
			if err != nil {
				return nil, err
			}
			s = hexAddr
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)

	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
		return nil, fmt.Errorf("expected bool, got %T", v)

	case abi.StringTy:
		switch s := v.(type) {
		case string:
			return s, nil
		case json.Number:
			return s.String(), nil
		}
		return nil, fmt.Errorf("expected string, got %T", v)

	case abi.BytesTy:
		return toBytes(v)

	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		items, ok := toSlice(v)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", v)
		}
		var out reflect.Value
		if t.T == abi.ArrayTy {
			if len(items) != t.Size {
				return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
			}
			out = reflect.New(t.GetType()).Elem()
		} else {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		}
		for i, item := range items {
			ev, err := coerceValue(*t.Elem, item, parse)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(ev))
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t.String())
}

// sizedInt converts n to the Go type the ABI encoder uses for t:
// *big.Int above 64 bits, the exact sized integer otherwise.
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy && n.Sign() < 0 {
		return nil, fmt.Errorf("negative value for %s", t.String())
	}
	if t.Size > 64 {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size)) //nolint:gosec // ABI sizes are at most 256
		if t.T == abi.IntTy {
			limit.Rsh(limit, 1)
		}
		if new(big.Int).Abs(n).Cmp(limit) >= 0 {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
		return n, nil
	}

	out := reflect.New(t.GetType()).Elem()
	if t.T == abi.UintTy {
		if !n.IsUint64() || out.OverflowUint(n.Uint64()) {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
		out.SetUint(n.Uint64())
		return out.Interface(), nil
	}
	if !n.IsInt64() || out.OverflowInt(n.Int64()) {
		return nil, fmt.Errorf("%s overflows %s", n, t.String())
	}
	out.SetInt(n.Int64())
	return out.Interface(), nil
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case json.Number:
		return parseInteger(x.String())
	case string:
		return parseInteger(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%v is not an integer", x)
		}
		n, _ := big.NewFloat(x).Int(nil)
		return n, nil
	case int:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

// parseInteger accepts decimal and 0x-prefixed hex strings.
func parseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(b, "0x"), "0X")
		if s == "" {
			return []byte{}, nil
		}
		return hex.DecodeString(s)
	}
	return nil, fmt.Errorf("expected hex string, got %T", v)
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// Canonical converts a decoded ABI value into a JSON-safe value: integers
// wider than 64 bits become decimal strings, addresses go through the
// formatter, and byte arrays become 0x hex.
func Canonical(v any, addr AddressFormatter) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *big.Int:
		return x.String()
	case common.Address:
		if addr != nil {
			return addr(x)
		}
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	case string, bool, uint8, uint16, uint32, uint64, int8, int16, int32, int64:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		return canonicalList(rv, addr)
	case reflect.Slice:
		return canonicalList(rv, addr)
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			out[lowerFirst(rv.Type().Field(i).Name)] = Canonical(rv.Field(i).Interface(), addr)
		}
		return out
	}
	return fmt.Sprint(v)
}

func canonicalList(rv reflect.Value, addr AddressFormatter) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = Canonical(rv.Index(i).Interface(), addr)
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
