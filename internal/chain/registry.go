package chain

import (
	"context"
	"fmt"
	"sort"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

// Route is a (chain, operation) dispatch key.
type Route struct {
	Chain     ID        `json:"chain"`
	Operation Operation `json:"operation"`
}

// String renders the route as CHAIN/Operation.
func (r Route) String() string {
	return fmt.Sprintf("%s/%s", r.Chain, r.Operation)
}

// Entry registers a builder for a route.
type Entry struct {
	Route
	Builder TransactionBuilder
}

// Registry maps (chain, operation) pairs to builders for one asset type.
// It is filled once by NewRegistry and never mutated afterwards, so it is
// safe for concurrent use without locking.
type Registry struct {
	asset    Asset
	builders map[Route]TransactionBuilder
}

// NewRegistry builds a registry from a startup table.
// Registering the same route twice is a programming error and panics.
func NewRegistry(asset Asset, entries ...Entry) *Registry {
	r := &Registry{
		asset:    asset,
		builders: make(map[Route]TransactionBuilder, len(entries)),
	}
	for _, e := range entries {
		if e.Builder == nil {
			panic(fmt.Sprintf("chain: nil builder for %s %s", asset, e.Route))
		}
		if _, dup := r.builders[e.Route]; dup {
			panic(fmt.Sprintf("chain: duplicate registration for %s %s", asset, e.Route))
		}
		r.builders[e.Route] = e.Builder
	}
	return r
}

// Asset returns the asset type the registry serves.
func (r *Registry) Asset() Asset {
	return r.asset
}

// Builder resolves the builder for (id, op).
// Unknown pairs fail with an UnsupportedChain error carrying both tags.
func (r *Registry) Builder(id ID, op Operation) (TransactionBuilder, error) {
	if b, ok := r.builders[Route{Chain: id, Operation: op}]; ok {
		return b, nil
	}
	err := connerr.UnsupportedChain(string(id), string(op))
	if !id.IsValid() {
		err = suggestChain(err, string(id))
	}
	return nil, err
}

// Supports returns true if (id, op) has a registered builder.
func (r *Registry) Supports(id ID, op Operation) bool {
	_, ok := r.builders[Route{Chain: id, Operation: op}]
	return ok
}

// Routes returns every registered route, sorted by chain then operation.
func (r *Registry) Routes() []Route {
	routes := make([]Route, 0, len(r.builders))
	for route := range r.builders {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Chain != routes[j].Chain {
			return routes[i].Chain < routes[j].Chain
		}
		return routes[i].Operation < routes[j].Operation
	})
	return routes
}

// EndpointResolver resolves the node endpoint for a chain.
type EndpointResolver interface {
	Resolve(ctx context.Context, id ID) (Endpoint, error)
}

// Router dispatches broadcasts to the broadcaster registered for each chain.
// Like Registry it is immutable after construction.
type Router struct {
	broadcasters map[ID]Broadcaster
	endpoints    EndpointResolver
}

// NewRouter creates a broadcast router.
func NewRouter(endpoints EndpointResolver, broadcasters map[ID]Broadcaster) *Router {
	table := make(map[ID]Broadcaster, len(broadcasters))
	for id, b := range broadcasters {
		table[id] = b
	}
	return &Router{broadcasters: table, endpoints: endpoints}
}

// Broadcast submits data on the chain's first configured node.
// Chains without a broadcaster fail with UnsupportedChain instead of
// silently returning nothing.
func (r *Router) Broadcast(ctx context.Context, id ID, data TransactionData) (string, error) {
	b, ok := r.broadcasters[id]
	if !ok {
		return "", connerr.UnsupportedChain(string(id), string(Broadcast))
	}
	endpoint, err := r.endpoints.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return b.Broadcast(ctx, endpoint.NodeURL, data)
}

// Chains returns the chains that have a broadcaster, sorted.
func (r *Router) Chains() []ID {
	ids := make([]ID, 0, len(r.broadcasters))
	for id := range r.broadcasters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
