// Package normalize maps raw block and transaction documents of any chain
// family onto one canonical shape: integer quantities instead of hex,
// arbitrary-precision decimal values, unified field names and display-form
// addresses. Per-family differences live in declarative field tables.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// ErrMalformedField indicates a node returned a field the table cannot convert.
var ErrMalformedField = &connerr.ConnectorError{
	Code:     "MALFORMED_NODE_FIELD",
	Message:  "node returned a malformed field",
	ExitCode: connerr.ExitUpstream,
}

// Kind selects how a field value is converted.
type Kind int

// Field kinds.
const (
	// Text passes the value through unchanged.
	Text Kind = iota
	// HexInt parses a 0x quantity (or decimal) into an integer.
	HexInt
	// Decimal parses an amount into an arbitrary-precision decimal.
	Decimal
	// HexBool parses 0x0/0x1 flags into booleans.
	HexBool
	// Address runs the value through the chain's address codec.
	Address
	// Strip removes the field.
	Strip
)

// Field declares the canonical name of a field, the raw names it may arrive
// under, and its conversion. Items normalizes nested objects or arrays of
// objects held by the field.
type Field struct {
	Name    string
	Aliases []string
	Kind    Kind
	Items   *Table
}

// Table is a set of field declarations. Fields not declared in a table are
// passed through unchanged.
type Table struct {
	byName map[string]*Field
}

// NewTable builds a table. Declaring the same raw name twice panics.
func NewTable(fields ...Field) *Table {
	t := &Table{byName: make(map[string]*Field, len(fields))}
	for i := range fields {
		f := &fields[i]
		for _, name := range append([]string{f.Name}, f.Aliases...) {
			if _, dup := t.byName[name]; dup {
				panic(fmt.Sprintf("normalize: field %q declared twice", name))
			}
			t.byName[name] = f
		}
	}
	return t
}

// Apply normalizes one document. When a document carries both a field's
// canonical name and an alias, the canonical value wins. The input is not
// modified.
func (t *Table) Apply(doc map[string]any, codec chain.AddressCodec) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		f, ok := t.byName[key]
		if !ok {
			out[key] = value
			continue
		}
		if f.Kind == Strip {
			continue
		}
		if key != f.Name {
			if _, canonical := doc[f.Name]; canonical {
				continue
			}
		}
		converted, err := t.convert(f, value, codec)
		if err != nil {
			return nil, connerr.WithDetails(ErrMalformedField, map[string]string{
				"field":  key,
				"reason": err.Error(),
			})
		}
		out[f.Name] = converted
	}
	return out, nil
}

func (t *Table) convert(f *Field, value any, codec chain.AddressCodec) (any, error) {
	if value == nil {
		return nil, nil
	}
	if f.Items != nil {
		return nested(f.Items, value, codec)
	}
	switch f.Kind {
	case HexInt:
		return toInteger(value)
	case Decimal:
		return toDecimal(value)
	case HexBool:
		return toBool(value)
	case Address:
		return toAddress(value, codec), nil
	default:
		return value, nil
	}
}

// nested normalizes an object or the objects of an array. Non-object array
// entries, such as transaction hashes in a block, pass through.
func nested(items *Table, value any, codec chain.AddressCodec) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return items.Apply(v, codec)
	case []any:
		out := make([]any, len(v))
		for i, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				out[i] = entry
				continue
			}
			normalized, err := items.Apply(obj, codec)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	default:
		return value, nil
	}
}

// toInteger converts hex quantities, decimal strings and JSON numbers to a
// decimal json.Number, which encodes as an exact JSON integer.
func toInteger(value any) (json.Number, error) {
	switch v := value.(type) {
	case json.Number:
		return parseInteger(string(v))
	case string:
		return parseInteger(v)
	case float64:
		if v != math.Trunc(v) {
			return "", fmt.Errorf("%v is not an integer", v)
		}
		return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case int:
		return json.Number(strconv.Itoa(v)), nil
	case int64:
		return json.Number(strconv.FormatInt(v, 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(v, 10)), nil
	case *big.Int:
		return json.Number(v.String()), nil
	default:
		return "", fmt.Errorf("unexpected %T", value)
	}
}

func parseInteger(s string) (json.Number, error) {
	n, err := bigInteger(s)
	if err != nil {
		return "", err
	}
	return json.Number(n.String()), nil
}

// bigInteger parses "0x"-prefixed hex or plain decimal.
func bigInteger(s string) (*big.Int, error) {
	raw := strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw, base = raw[2:], 16
		if raw == "" {
			return new(big.Int), nil
		}
	}
	n, ok := new(big.Int).SetString(raw, base)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}

// toDecimal converts amounts without passing through floating point, except
// for values the JSON decoder already produced as float64.
func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(string(v))
	case string:
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			n, err := bigInteger(v)
			if err != nil {
				return decimal.Decimal{}, err
			}
			return decimal.NewFromBigInt(n, 0), nil
		}
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case *big.Int:
		return decimal.NewFromBigInt(v, 0), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected %T", value)
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string, json.Number:
		s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
		if s == "" || !isNumeric(s) {
			// Result words such as SUCCESS, REVERT or OUT_OF_ENERGY.
			return s == "true" || s == "success", nil
		}
		n, err := bigInteger(s)
		if err != nil {
			return false, err
		}
		return n.Sign() != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unexpected %T", value)
	}
}

func isNumeric(s string) bool {
	return strings.HasPrefix(s, "0x") || (s[0] >= '0' && s[0] <= '9')
}

// toAddress converts an address to display form. Values the codec rejects
// are returned unchanged rather than failing the whole document.
func toAddress(value any, codec chain.AddressCodec) any {
	s, ok := value.(string)
	if !ok || s == "" || codec == nil {
		return value
	}
	display, err := codec.Normalize(s)
	if err != nil {
		return value
	}
	return display
}
