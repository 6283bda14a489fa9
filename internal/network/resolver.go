// Package network resolves the node endpoint a request is sent to.
package network

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// DefaultTimeout bounds each configuration lookup.
const DefaultTimeout = 5 * time.Second

// Config is the source of network selection and node lists.
type Config interface {
	IsTestnet(ctx context.Context) (bool, error)
	NodesURL(ctx context.Context, id chain.ID, testnet bool) ([]string, error)
}

// Compile-time interface check
var _ chain.EndpointResolver = (*Resolver)(nil)

// Resolver joins the network flag and the node list of a chain.
type Resolver struct {
	cfg     Config
	timeout time.Duration
}

// NewResolver creates a resolver. A zero timeout uses DefaultTimeout.
func NewResolver(cfg Config, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{cfg: cfg, timeout: timeout}
}

// Resolve returns the first configured node of the chain for the selected
// network. The testnet flag and the node lists of both networks are fetched
// concurrently so no lookup waits on another; the list matching the flag is
// picked once all of them complete. A failed lookup of the other network's
// list does not fail the call.
func (r *Resolver) Resolve(ctx context.Context, id chain.ID) (chain.Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		testnet      bool
		mainnetNodes []string
		testnetNodes []string
		mainnetErr   error
		testnetErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		testnet, err = r.cfg.IsTestnet(gctx)
		return err
	})
	g.Go(func() error {
		mainnetNodes, mainnetErr = r.cfg.NodesURL(gctx, id, false)
		return nil
	})
	g.Go(func() error {
		testnetNodes, testnetErr = r.cfg.NodesURL(gctx, id, true)
		return nil
	})
	if err := g.Wait(); err != nil {
		return chain.Endpoint{}, connerr.Wrap(err, "resolving %s endpoint", id)
	}

	nodes, err := mainnetNodes, mainnetErr
	if testnet {
		nodes, err = testnetNodes, testnetErr
	}
	if err != nil {
		return chain.Endpoint{}, connerr.Wrap(err, "resolving %s endpoint", id)
	}
	for _, n := range nodes {
		if n != "" {
			return chain.Endpoint{NodeURL: n, Testnet: testnet}, nil
		}
	}
	return chain.Endpoint{}, connerr.NoNodeURL(string(id))
}

// String describes the resolver for diagnostics.
func (r *Resolver) String() string {
	return fmt.Sprintf("network.Resolver(timeout=%s)", r.timeout)
}
