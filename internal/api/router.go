// Package api exposes the connector over HTTP.
package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/metrics"
	"github.com/mrz1836/connector/internal/normalize"
	"github.com/mrz1836/connector/internal/service/query"
	"github.com/mrz1836/connector/internal/service/transaction"
)

// Submitter submits operations of one asset type.
type Submitter interface {
	Asset() chain.Asset
	PrepareAndSubmit(ctx context.Context, id chain.ID, op chain.Operation, req *chain.Request) (*transaction.Result, error)
	Broadcast(ctx context.Context, id chain.ID, txData chain.TransactionData, signatureID string) (*transaction.Result, error)
}

// Reader answers read-only queries.
type Reader interface {
	Block(ctx context.Context, id chain.ID, hashOrHeight string) (normalize.Block, error)
	Transaction(ctx context.Context, id chain.ID, txID string) (normalize.Transaction, error)
	ReadContract(ctx context.Context, id chain.ID, call chain.ContractCall) (any, error)
	ContractAddress(ctx context.Context, id chain.ID, txID string) (string, error)
	ERC20Balance(ctx context.Context, id chain.ID, contractAddress, address string) (*query.TokenBalance, error)
	NFTMetadata(ctx context.Context, id chain.ID, contractAddress, tokenID string) (string, error)
	NFTRoyalty(ctx context.Context, id chain.ID, contractAddress, tokenID string) (*query.Royalty, error)
	NFTTokensOfOwner(ctx context.Context, id chain.ID, contractAddress, owner string) ([]string, error)
	MultiTokenMetadata(ctx context.Context, id chain.ID, contractAddress, tokenID string) (string, error)
	MultiTokenBalance(ctx context.Context, id chain.ID, contractAddress, address, tokenID string) (string, error)
	MultiTokenBalanceBatch(ctx context.Context, id chain.ID, contractAddress string, addresses, tokenIDs []string) ([]string, error)
}

// ChainInfo describes what the connector supports on one chain.
type ChainInfo struct {
	Chain      chain.ID                          `json:"chain"`
	Operations map[chain.Asset][]chain.Operation `json:"operations,omitempty"`
	Broadcast  bool                              `json:"broadcast"`
	Read       bool                              `json:"read"`
}

// Config holds the router dependencies. Metrics, Gatherer and Logger are
// optional.
type Config struct {
	Submitters map[chain.Asset]Submitter
	Reader     Reader
	Chains     []ChainInfo
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
	Version    string
}

type handlers struct {
	submitters map[chain.Asset]Submitter
	reader     Reader
	chains     []ChainInfo
	version    string
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg *Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), recordMetrics(cfg.Metrics), logRequests(logger))

	h := &handlers{
		submitters: cfg.Submitters,
		reader:     cfg.Reader,
		chains:     cfg.Chains,
		version:    cfg.Version,
	}

	r.GET("/healthz", h.health)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	v1.GET("/chains", h.listChains)
	v1.POST("/submit/:asset/:chain/:operation", h.submit)
	v1.POST("/broadcast/:chain", h.broadcast)
	v1.GET("/block/:chain/:hashOrHeight", h.block)
	v1.GET("/transaction/:chain/:txId", h.transaction)
	v1.POST("/contract/:chain/read", h.readContract)
	v1.GET("/contract/:chain/address/:txId", h.contractAddress)

	v1.GET("/erc20/:chain/balance/:contractAddress/:address", h.erc20Balance)

	nft := v1.Group("/nft/:chain")
	nft.GET("/metadata/:contractAddress/:tokenId", h.nftMetadata)
	nft.GET("/royalty/:contractAddress/:tokenId", h.nftRoyalty)
	nft.GET("/tokens/:contractAddress/:address", h.nftTokensOfOwner)

	mt := v1.Group("/multitoken/:chain")
	mt.GET("/metadata/:contractAddress/:tokenId", h.multiTokenMetadata)
	mt.GET("/balance/:contractAddress/:address/:tokenId", h.multiTokenBalance)
	mt.POST("/balance/batch", h.multiTokenBalanceBatch)

	return r
}
