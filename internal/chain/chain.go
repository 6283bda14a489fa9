// Package chain provides the chain, operation and asset vocabulary, the
// capability interfaces implemented by every chain module, and the dispatch
// registry that binds them together.
package chain

import (
	"context"
	"strings"
)

// ID represents a supported blockchain.
type ID string

// Supported blockchain identifiers.
const (
	ETH   ID = "ETH"
	BSC   ID = "BSC"
	CELO  ID = "CELO"
	XDC   ID = "XDC"
	ONE   ID = "ONE"
	MATIC ID = "MATIC"
	TRON  ID = "TRON"
	FLOW  ID = "FLOW"
	ADA   ID = "ADA"
	QTUM  ID = "QTUM"
	XTZ   ID = "XTZ"
	LYRA  ID = "LYRA"
)

// Family groups chains that share a wire protocol and response shape.
type Family int

// Chain families.
const (
	FamilyUnknown Family = iota
	FamilyEVM
	FamilyTron
	FamilyQtum
	FamilyCardano
	FamilyTezos
	FamilyFlow
	FamilyScrypta
)

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// IsValid returns true if the chain ID is a known chain.
func (id ID) IsValid() bool {
	return id.Family() != FamilyUnknown
}

// Family returns the protocol family of the chain.
func (id ID) Family() Family {
	switch id {
	case ETH, BSC, CELO, XDC, ONE, MATIC:
		return FamilyEVM
	case TRON:
		return FamilyTron
	case QTUM:
		return FamilyQtum
	case ADA:
		return FamilyCardano
	case XTZ:
		return FamilyTezos
	case FLOW:
		return FamilyFlow
	case LYRA:
		return FamilyScrypta
	default:
		return FamilyUnknown
	}
}

// NativeDecimals returns the number of decimals of the chain's native coin.
func (id ID) NativeDecimals() int {
	switch id {
	case TRON, ADA, XTZ:
		return 6
	case QTUM, LYRA, FLOW:
		return 8
	default:
		return 18
	}
}

// AllChains returns all known chain IDs.
func AllChains() []ID {
	return []ID{ETH, BSC, CELO, XDC, ONE, MATIC, TRON, FLOW, ADA, QTUM, XTZ, LYRA}
}

// Operation is a logical transaction operation.
type Operation string

// Supported operations.
const (
	Transfer       Operation = "Transfer"
	TransferBatch  Operation = "TransferBatch"
	Mint           Operation = "Mint"
	MintBatch      Operation = "MintBatch"
	Burn           Operation = "Burn"
	BurnBatch      Operation = "BurnBatch"
	Deploy         Operation = "Deploy"
	UpdateCashback Operation = "UpdateCashback"
	InvokeContract Operation = "InvokeContract"
	Broadcast      Operation = "Broadcast"
)

// String returns the operation name.
func (op Operation) String() string {
	return string(op)
}

// AllOperations returns every operation tag.
func AllOperations() []Operation {
	return []Operation{
		Transfer, TransferBatch, Mint, MintBatch, Burn, BurnBatch,
		Deploy, UpdateCashback, InvokeContract, Broadcast,
	}
}

// Asset selects which per-asset service and registry handle a request.
type Asset string

// Asset types.
const (
	AssetNative     Asset = "native"
	AssetERC20      Asset = "erc20"
	AssetNFT        Asset = "nft"
	AssetMultiToken Asset = "multitoken"
)

// AllAssets returns every asset type.
func AllAssets() []Asset {
	return []Asset{AssetNative, AssetERC20, AssetNFT, AssetMultiToken}
}

// ParseAsset parses an asset type name, case-insensitively.
func ParseAsset(s string) (Asset, bool) {
	a := Asset(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case AssetNative, AssetERC20, AssetNFT, AssetMultiToken:
		return a, true
	default:
		return "", false
	}
}

// TransactionData is an opaque signed or unsigned payload produced by a
// builder and consumed only by the same chain's broadcaster or the KMS.
type TransactionData string

// Endpoint is the resolved node target for one request.
type Endpoint struct {
	NodeURL string
	Testnet bool
}

// TransactionBuilder produces transaction data for one (chain, operation).
type TransactionBuilder interface {
	Build(ctx context.Context, req *Request, target Endpoint) (TransactionData, error)
}

// BuilderFunc adapts a function to the TransactionBuilder interface.
type BuilderFunc func(ctx context.Context, req *Request, target Endpoint) (TransactionData, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, req *Request, target Endpoint) (TransactionData, error) {
	return f(ctx, req, target)
}

// Broadcaster submits transaction data to a node and returns its hash.
type Broadcaster interface {
	Broadcast(ctx context.Context, nodeURL string, data TransactionData) (string, error)
}

// BlockReader fetches raw blocks and transactions from a node.
// Raw documents are decoded with json.Number for numeric values.
type BlockReader interface {
	Block(ctx context.Context, nodeURL, hashOrHeight string) (map[string]any, error)
	Transaction(ctx context.Context, nodeURL, txID string) (*TxLookup, error)
}

// ContractReader performs read-only contract calls.
type ContractReader interface {
	ReadContract(ctx context.Context, nodeURL string, call ContractCall) (any, error)
}

// Reader combines the read-only capabilities of a chain.
type Reader interface {
	BlockReader
	ContractReader
}

// AddressCodec converts between a chain's display address form and hex.
type AddressCodec interface {
	// Normalize returns the canonical display form of an address.
	// Normalize must be idempotent.
	Normalize(address string) (string, error)

	// Hex returns the 0x-prefixed hex form used on the wire.
	Hex(address string) (string, error)
}

// TxState is the lookup outcome for a transaction.
type TxState int

// Transaction lookup states.
const (
	TxNotFound TxState = iota
	TxPending
	TxFound
)

// String returns the state name.
func (s TxState) String() string {
	switch s {
	case TxFound:
		return "found"
	case TxPending:
		return "pending"
	default:
		return "not_found"
	}
}

// TxLookup is the explicit result of a transaction lookup.
// Receipt is nil unless State is TxFound. ReceiptErr records why a
// transaction was returned without its receipt.
type TxLookup struct {
	State      TxState
	Tx         map[string]any
	Receipt    map[string]any
	ReceiptErr error
}

// ContractCall describes a read-only contract invocation.
type ContractCall struct {
	Contract string `json:"contractAddress"`
	Method   string `json:"method"`
	ABI      string `json:"abi,omitempty"` // optional method or contract ABI JSON
	Args     []any  `json:"args,omitempty"`
}
