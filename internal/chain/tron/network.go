// Package tron builds, broadcasts and reads TRON transactions through the
// /wallet REST API of a full node.
package tron

import (
	"sync"
	"time"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/metrics"
)

// Options contains optional configuration for the TRON network.
type Options struct {
	// Timeout bounds each node call.
	Timeout time.Duration
	// Limiter throttles calls per node URL.
	Limiter *chain.RateLimiter
	// Metrics records node calls.
	Metrics *metrics.Metrics
	// APIKey is sent as TRON-PRO-API-KEY.
	APIKey string
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// Compile-time interface checks
var (
	_ chain.Broadcaster = (*Network)(nil)
	_ chain.Reader      = (*Network)(nil)
)

// Network talks to TRON full nodes. Clients are created lazily per node URL.
type Network struct {
	opts  Options
	codec Codec

	mu      sync.Mutex
	clients map[string]*Client
}

// NewNetwork creates the TRON network.
func NewNetwork(opts *Options) *Network {
	n := &Network{clients: make(map[string]*Client)}
	if opts != nil {
		n.opts = *opts
	}
	if n.opts.Now == nil {
		n.opts.Now = time.Now
	}
	return n
}

// ID returns chain.TRON.
func (n *Network) ID() chain.ID {
	return chain.TRON
}

// Codec returns the base58check address codec.
func (n *Network) Codec() chain.AddressCodec {
	return n.codec
}

// Client returns the REST client for a node URL.
func (n *Network) Client(nodeURL string) *Client {
	n.mu.Lock()
	defer n.mu.Unlock()

	if c, ok := n.clients[nodeURL]; ok {
		return c
	}
	c := newClient(nodeURL, &n.opts)
	n.clients[nodeURL] = c
	return c
}
