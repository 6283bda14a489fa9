// Package contract packs and decodes EVM contract calls for the standard token
// interfaces and for caller-supplied ABIs.
package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

var (
	// ErrInvalidABI indicates a caller-supplied ABI could not be parsed.
	ErrInvalidABI = &connerr.ConnectorError{
		Code:     "CONTRACT_INVALID_ABI",
		Message:  "invalid contract ABI",
		ExitCode: connerr.ExitInput,
	}

	// ErrMethodNotFound indicates the method is not part of the ABI.
	ErrMethodNotFound = &connerr.ConnectorError{
		Code:     "CONTRACT_METHOD_NOT_FOUND",
		Message:  "contract method not found",
		ExitCode: connerr.ExitInput,
	}

	// ErrInvalidArgument indicates a call argument does not fit its ABI type.
	ErrInvalidArgument = &connerr.ConnectorError{
		Code:     "CONTRACT_INVALID_ARGUMENT",
		Message:  "invalid contract argument",
		ExitCode: connerr.ExitInput,
	}
)

// Method is a resolved contract method.
type Method struct {
	Name    string
	Sig     string // canonical signature, e.g. transfer(address,uint256)
	ID      []byte // 4-byte selector
	Inputs  abi.Arguments
	Outputs abi.Arguments
}

// FromABI converts a go-ethereum method.
func FromABI(m abi.Method) *Method {
	return &Method{
		Name:    m.RawName,
		Sig:     m.Sig,
		ID:      m.ID,
		Inputs:  m.Inputs,
		Outputs: m.Outputs,
	}
}

// Pack encodes a call: selector followed by the ABI-encoded arguments.
func (m *Method) Pack(args ...any) ([]byte, error) {
	params, err := m.PackArgs(args...)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(m.ID)+len(params))
	data = append(data, m.ID...)
	return append(data, params...), nil
}

// PackArgs encodes only the arguments, without the selector.
func (m *Method) PackArgs(args ...any) ([]byte, error) {
	params, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, connerr.WithDetails(connerr.Wrap(ErrInvalidArgument, "%s", err.Error()),
			map[string]string{"method": m.Sig})
	}
	return params, nil
}

// Decode unpacks return data into JSON-safe values.
// A method without declared outputs returns the raw data as hex; a single
// output is returned unwrapped.
func (m *Method) Decode(data []byte, addr AddressFormatter) (any, error) {
	if len(m.Outputs) == 0 {
		return hexutil.Encode(data), nil
	}
	values, err := m.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", m.Sig, err)
	}
	if len(values) == 1 {
		return Canonical(values[0], addr), nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Canonical(v, addr)
	}
	return out, nil
}

// Parse parses a contract ABI. A single method object is accepted as well as
// a full ABI array.
func Parse(abiJSON string) (*abi.ABI, error) {
	def := strings.TrimSpace(abiJSON)
	if strings.HasPrefix(def, "{") {
		def = "[" + def + "]"
	}
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		return nil, connerr.Wrap(ErrInvalidABI, "%s", err.Error())
	}
	return &parsed, nil
}

// Find returns the method of an ABI by name and argument count.
// Overloaded methods are matched on their raw name. A negative argCount
// matches any arity.
func Find(a *abi.ABI, name string, argCount int) (*Method, error) {
	if m, ok := a.Methods[name]; ok && (argCount < 0 || len(m.Inputs) == argCount) {
		return FromABI(m), nil
	}
	for _, m := range a.Methods {
		if m.RawName == name && (argCount < 0 || len(m.Inputs) == argCount) {
			return FromABI(m), nil
		}
	}
	return nil, connerr.WithDetails(ErrMethodNotFound, map[string]string{"method": name})
}

// StandardMethod returns a method of a standard interface. It panics when the
// method is missing since the standard ABIs are fixed.
func StandardMethod(s Standard, name string) *Method {
	m, err := Find(MustLookup(s), name, -1)
	if err != nil {
		panic("contract: " + string(s) + " has no method " + name)
	}
	return m
}

// Resolve finds the method for a call. Resolution order: the caller's ABI
// when given, a full signature such as "balanceOf(address)", then the
// standard interfaces in ERC-20, ERC-721, ERC-1155 order.
func Resolve(abiJSON, method string, argCount int) (*Method, error) {
	if strings.TrimSpace(abiJSON) != "" {
		a, err := Parse(abiJSON)
		if err != nil {
			return nil, err
		}
		return Find(a, method, argCount)
	}
	if strings.Contains(method, "(") {
		return ParseSignature(method)
	}
	for _, s := range []Standard{ERC20, ERC721, ERC1155} {
		if m, err := Find(standards[s], method, argCount); err == nil {
			return m, nil
		}
	}
	return nil, connerr.WithDetails(ErrMethodNotFound, map[string]string{"method": method})
}

// ParseSignature builds an input-only method from a signature such as
// "transfer(address,uint256)". Tuple types are not supported.
func ParseSignature(signature string) (*Method, error) {
	sig := strings.ReplaceAll(strings.TrimSpace(signature), " ", "")
	open := strings.Index(sig, "(")
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, connerr.WithDetails(ErrInvalidABI, map[string]string{"signature": signature})
	}

	name := sig[:open]
	list := sig[open+1 : len(sig)-1]

	var inputs abi.Arguments
	if list != "" {
		for i, typ := range strings.Split(list, ",") {
			t, err := abi.NewType(typ, "", nil)
			if err != nil {
				return nil, connerr.WithDetails(ErrInvalidABI, map[string]string{
					"signature": signature,
					"type":      typ,
				})
			}
			inputs = append(inputs, abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: t})
		}
	}

	return &Method{
		Name:   name,
		Sig:    sig,
		ID:     Selector(sig),
		Inputs: inputs,
	}, nil
}

// PackDeploy appends ABI-encoded constructor arguments to contract bytecode.
func PackDeploy(a *abi.ABI, bytecode []byte, args ...any) ([]byte, error) {
	params, err := a.Pack("", args...)
	if err != nil {
		return nil, connerr.Wrap(ErrInvalidArgument, "constructor: %s", err.Error())
	}
	data := make([]byte, 0, len(bytecode)+len(params))
	data = append(data, bytecode...)
	return append(data, params...), nil
}

// Selector returns the first four bytes of the keccak256 hash of a canonical
// method signature.
func Selector(signature string) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	return hasher.Sum(nil)[:4]
}
