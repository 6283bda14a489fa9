// Package app wires configuration into the chain networks, services and
// HTTP router.
package app

import (
	"errors"
	"math/big"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/mrz1836/connector/internal/api"
	"github.com/mrz1836/connector/internal/cache"
	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/cardano"
	"github.com/mrz1836/connector/internal/chain/evm"
	"github.com/mrz1836/connector/internal/chain/gateway"
	"github.com/mrz1836/connector/internal/chain/qtum"
	"github.com/mrz1836/connector/internal/chain/tezos"
	"github.com/mrz1836/connector/internal/chain/tron"
	"github.com/mrz1836/connector/internal/config"
	"github.com/mrz1836/connector/internal/events"
	"github.com/mrz1836/connector/internal/kms"
	"github.com/mrz1836/connector/internal/metrics"
	"github.com/mrz1836/connector/internal/network"
	"github.com/mrz1836/connector/internal/service/query"
	"github.com/mrz1836/connector/internal/service/transaction"
)

// evmChains are served by the generic EVM network.
//
//nolint:gochecknoglobals // Static chain list
var evmChains = []chain.ID{chain.ETH, chain.BSC, chain.CELO, chain.XDC, chain.ONE, chain.MATIC}

// App holds every long-lived component of a running connector.
type App struct {
	Config     *config.Config
	Logger     *config.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Resolver   *network.Resolver
	Router     *chain.Router
	Registries map[chain.Asset]*chain.Registry
	Submitters map[chain.Asset]*transaction.Service
	Query      *query.Service
	Store      transaction.SignatureStore
	Events     events.Publisher
	Cache      *cache.BlockCache

	closers []func() error
}

// New builds the application from configuration. Nothing connects to a
// node, the KMS or a broker until the first request.
func New(cfg *config.Config, logger *config.Logger) (*App, error) {
	if logger == nil {
		logger = config.NullLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Resolver: network.NewResolver(cfg, cfg.Timeouts.Network),
	}

	readers, codecs, broadcasters, entries, err := a.networks()
	if err != nil {
		return nil, err
	}
	a.Router = chain.NewRouter(a.Resolver, broadcasters)
	a.Registries = make(map[chain.Asset]*chain.Registry, len(chain.AllAssets()))
	for _, asset := range chain.AllAssets() {
		a.Registries[asset] = chain.NewRegistry(asset, entries[asset]...)
	}

	a.Store = a.signatureStore()
	a.Events = a.publisher()
	if cfg.Cache.Enabled {
		a.Cache, err = cache.NewBlockCache(cfg.Cache.MaxCost, a.Metrics)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			a.Cache.Close()
			return nil
		})
	}

	timeouts := transaction.Timeouts{
		Build:     cfg.Timeouts.Build,
		Broadcast: cfg.Timeouts.Broadcast,
		KMS:       cfg.Timeouts.KMS,
	}
	a.Submitters = make(map[chain.Asset]*transaction.Service, len(a.Registries))
	for asset, registry := range a.Registries {
		a.Submitters[asset] = transaction.NewService(&transaction.Config{
			Registry:  registry,
			Endpoints: a.Resolver,
			Broadcast: a.Router,
			Store:     a.Store,
			Events:    a.Events,
			Metrics:   a.Metrics,
			Logger:    logger,
			Timeouts:  timeouts,
		})
	}

	a.Query = query.NewService(&query.Config{
		Readers:   readers,
		Codecs:    codecs,
		Endpoints: a.Resolver,
		Cache:     a.Cache,
		Logger:    logger,
		Timeout:   cfg.Timeouts.Read,
	})

	logger.Debug("connector ready: %d broadcast chains, testnet=%t, kms=%s",
		len(a.Router.Chains()), cfg.Network.Testnet, cfg.KMS.Backend)
	return a, nil
}

// networks creates one network per supported chain and collects its
// capabilities.
func (a *App) networks() (
	readers map[chain.ID]chain.BlockReader,
	codecs map[chain.ID]chain.AddressCodec,
	broadcasters map[chain.ID]chain.Broadcaster,
	entries map[chain.Asset][]chain.Entry,
	err error,
) {
	cfg := a.Config
	limiter := chain.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	readers = make(map[chain.ID]chain.BlockReader)
	codecs = make(map[chain.ID]chain.AddressCodec)
	broadcasters = make(map[chain.ID]chain.Broadcaster)
	entries = make(map[chain.Asset][]chain.Entry)

	addRoutes := func(routes map[chain.Asset][]chain.Entry) {
		for asset, list := range routes {
			entries[asset] = append(entries[asset], list...)
		}
	}

	for _, id := range evmChains {
		cc := cfg.Chain(id)
		n, err := evm.NewNetwork(id, &evm.Options{
			Timeout:        cfg.Timeouts.Network,
			Limiter:        limiter,
			Metrics:        a.Metrics,
			MainnetChainID: chainID(cc.MainnetChainID),
			TestnetChainID: chainID(cc.TestnetChainID),
		})
		if err != nil {
			return nil, nil, nil, nil, err
		}
		readers[id], codecs[id], broadcasters[id] = n, n.Codec(), n
		addRoutes(n.Routes())
	}

	trx := tron.NewNetwork(&tron.Options{
		Timeout: cfg.Timeouts.Network,
		Limiter: limiter,
		Metrics: a.Metrics,
		APIKey:  cfg.Chain(chain.TRON).APIKey,
	})
	readers[chain.TRON], codecs[chain.TRON], broadcasters[chain.TRON] = trx, trx.Codec(), trx
	addRoutes(trx.Routes())

	gw := &gateway.Options{Timeout: cfg.Timeouts.Network, Limiter: limiter, Metrics: a.Metrics}
	qt := qtum.NewNetwork(gw)
	readers[chain.QTUM], broadcasters[chain.QTUM] = qt, qt
	ada := cardano.NewNetwork(gw)
	readers[chain.ADA], broadcasters[chain.ADA] = ada, ada
	xtz := tezos.NewNetwork(gw)
	readers[chain.XTZ], broadcasters[chain.XTZ] = xtz, xtz

	return readers, codecs, broadcasters, entries, nil
}

// signatureStore selects the KMS backend.
func (a *App) signatureStore() transaction.SignatureStore {
	k := a.Config.KMS
	switch k.Backend {
	case config.KMSBackendHTTP:
		return kms.NewHTTPStore(k.URL, k.APIKey, a.Config.Timeouts.KMS)
	case config.KMSBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     k.RedisAddr,
			Password: k.RedisPassword,
			DB:       k.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		return kms.NewRedisStore(client, k.TTL)
	default:
		return kms.Disabled{}
	}
}

func (a *App) publisher() events.Publisher {
	e := a.Config.Events
	if len(e.Brokers) == 0 {
		return events.Nop{}
	}
	p := events.NewKafkaPublisher(e.Brokers, e.Topic)
	a.closers = append(a.closers, p.Close)
	return p
}

// Handler builds the HTTP router.
func (a *App) Handler(version string) *gin.Engine {
	submitters := make(map[chain.Asset]api.Submitter, len(a.Submitters))
	for asset, s := range a.Submitters {
		submitters[asset] = s
	}
	return api.NewRouter(&api.Config{
		Submitters: submitters,
		Reader:     a.Query,
		Chains:     a.Chains(),
		Metrics:    a.Metrics,
		Gatherer:   a.Gatherer,
		Logger:     a.Logger.Zap(),
		Version:    version,
	})
}

// Chains describes the capabilities of every known chain.
func (a *App) Chains() []api.ChainInfo {
	broadcast := make(map[chain.ID]bool)
	for _, id := range a.Router.Chains() {
		broadcast[id] = true
	}
	readable := make(map[chain.ID]bool)
	for _, id := range a.Query.Chains() {
		readable[id] = true
	}

	infos := make([]api.ChainInfo, 0, len(chain.AllChains()))
	for _, id := range chain.AllChains() {
		info := api.ChainInfo{Chain: id, Broadcast: broadcast[id], Read: readable[id]}
		for _, asset := range chain.AllAssets() {
			for _, route := range a.Registries[asset].Routes() {
				if route.Chain != id {
					continue
				}
				if info.Operations == nil {
					info.Operations = make(map[chain.Asset][]chain.Operation)
				}
				info.Operations[asset] = append(info.Operations[asset], route.Operation)
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// Close releases every component in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func chainID(v int64) *big.Int {
	if v == 0 {
		return nil
	}
	return big.NewInt(v)
}
