// Package evm builds, broadcasts and reads transactions on EVM-compatible
// chains (ETH, BSC, CELO, XDC, ONE, MATIC).
package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/evm/rpc"
	"github.com/mrz1836/connector/internal/metrics"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// ErrNotEVM indicates a network was requested for a non-EVM chain.
var ErrNotEVM = &connerr.ConnectorError{
	Code:     "EVM_UNSUPPORTED_CHAIN",
	Message:  "chain is not EVM compatible",
	ExitCode: connerr.ExitInput,
}

// Options contains optional configuration for an EVM network.
type Options struct {
	// Timeout bounds each node call.
	Timeout time.Duration
	// Limiter throttles calls per node URL.
	Limiter *chain.RateLimiter
	// Metrics records node calls.
	Metrics *metrics.Metrics
	// MainnetChainID and TestnetChainID override eth_chainId detection.
	MainnetChainID *big.Int
	TestnetChainID *big.Int
	// Headers are sent with every node request.
	Headers map[string]string
}

// Compile-time interface checks
var (
	_ chain.Broadcaster = (*Network)(nil)
	_ chain.Reader      = (*Network)(nil)
)

// Network talks to the nodes of one EVM chain. Node clients are created
// lazily per node URL and shared by concurrent requests.
type Network struct {
	id    chain.ID
	codec chain.AddressCodec
	opts  Options

	mu       sync.Mutex
	clients  map[string]*rpc.Client
	chainIDs map[string]*big.Int
}

// NewNetwork creates a network for an EVM chain.
func NewNetwork(id chain.ID, opts *Options) (*Network, error) {
	if id.Family() != chain.FamilyEVM {
		return nil, connerr.WithDetails(ErrNotEVM, map[string]string{"chain": string(id)})
	}
	n := &Network{
		id:       id,
		codec:    CodecFor(id),
		clients:  make(map[string]*rpc.Client),
		chainIDs: make(map[string]*big.Int),
	}
	if opts != nil {
		n.opts = *opts
	}
	return n, nil
}

// ID returns the chain identifier.
func (n *Network) ID() chain.ID {
	return n.id
}

// Codec returns the chain's address codec.
func (n *Network) Codec() chain.AddressCodec {
	return n.codec
}

// Client returns the RPC client for a node URL.
func (n *Network) Client(nodeURL string) *rpc.Client {
	n.mu.Lock()
	defer n.mu.Unlock()

	if c, ok := n.clients[nodeURL]; ok {
		return c
	}
	c := rpc.NewClient(nodeURL, &rpc.ClientOptions{
		Chain:   string(n.id),
		Timeout: n.opts.Timeout,
		Limiter: n.opts.Limiter,
		Metrics: n.opts.Metrics,
		Headers: n.opts.Headers,
	})
	n.clients[nodeURL] = c
	return c
}

// ChainID returns the EIP-155 chain ID for the target. Configured IDs win;
// otherwise the node is asked once and the answer cached.
// A failed lookup is not cached so the next request retries it.
func (n *Network) ChainID(ctx context.Context, target chain.Endpoint) (*big.Int, error) {
	if target.Testnet && n.opts.TestnetChainID != nil {
		return n.opts.TestnetChainID, nil
	}
	if !target.Testnet && n.opts.MainnetChainID != nil {
		return n.opts.MainnetChainID, nil
	}

	n.mu.Lock()
	cached, ok := n.chainIDs[target.NodeURL]
	n.mu.Unlock()
	if ok {
		return cached, nil
	}

	id, err := n.Client(target.NodeURL).ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain ID: %w", err)
	}

	n.mu.Lock()
	n.chainIDs[target.NodeURL] = id
	n.mu.Unlock()
	return id, nil
}
