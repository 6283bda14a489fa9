// Package query serves the read-only paths: blocks, transactions and
// contract calls, normalized into the canonical shapes.
package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mrz1836/connector/internal/cache"
	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/normalize"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// DefaultTimeout bounds each read, retries included.
const DefaultTimeout = 15 * time.Second

// minHashLength separates block hashes from heights and tags.
const minHashLength = 64

// Read operations, used in UnsupportedChain details.
const (
	opBlock           = "Block"
	opTransaction     = "Transaction"
	opReadContract    = "ReadContract"
	opContractAddress = "ContractAddress"
)

// DeployReader resolves the contract created by a deploy transaction.
type DeployReader interface {
	ContractAddress(ctx context.Context, nodeURL, txID string) (string, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds dependencies for the query service.
// Readers may also implement chain.ContractReader and DeployReader.
type Config struct {
	Readers   map[chain.ID]chain.BlockReader
	Codecs    map[chain.ID]chain.AddressCodec
	Endpoints chain.EndpointResolver
	Cache     *cache.BlockCache
	Logger    LogWriter
	Timeout   time.Duration
	Retry     *chain.RetryConfig
}

// Service answers read-only queries against chain nodes.
type Service struct {
	readers   map[chain.ID]chain.BlockReader
	codecs    map[chain.ID]chain.AddressCodec
	endpoints chain.EndpointResolver
	cache     *cache.BlockCache
	logger    LogWriter
	timeout   time.Duration
	retry     chain.RetryConfig
}

// NewService creates a query service.
func NewService(cfg *Config) *Service {
	s := &Service{
		readers:   cfg.Readers,
		codecs:    cfg.Codecs,
		endpoints: cfg.Endpoints,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		timeout:   cfg.Timeout,
		retry:     chain.DefaultRetryConfig(),
	}
	if cfg.Retry != nil {
		s.retry = *cfg.Retry
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Chains returns the chains with a registered reader.
func (s *Service) Chains() []chain.ID {
	ids := make([]chain.ID, 0, len(s.readers))
	for _, id := range chain.AllChains() {
		if _, ok := s.readers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Block returns a normalized block by hash or height. Blocks fetched by
// any reference are cached under their hash.
func (s *Service) Block(ctx context.Context, id chain.ID, hashOrHeight string) (normalize.Block, error) {
	reader, ok := s.readers[id]
	if !ok {
		return nil, connerr.UnsupportedChain(string(id), opBlock)
	}
	ref := strings.TrimSpace(hashOrHeight)
	if ref == "" {
		return nil, chain.MissingField("hashOrHeight")
	}
	if isHash(ref) {
		if block, hit := s.cache.Get(id, cacheHash(ref)); hit {
			return block, nil
		}
	}

	nodeURL, err := s.nodeURL(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := read(ctx, s, func(ctx context.Context) (map[string]any, error) {
		return reader.Block(ctx, nodeURL, ref)
	})
	if err != nil {
		return nil, s.readFailed(id, opBlock, ref, err)
	}
	if raw == nil {
		return nil, connerr.BlockNotFound(string(id), ref)
	}

	block, err := normalize.For(id, s.codecs[id]).Block(raw)
	if err != nil {
		return nil, err
	}
	if hash, ok := block["hash"].(string); ok {
		s.cache.Set(id, cacheHash(hash), block)
	}
	return block, nil
}

// Transaction returns a normalized transaction merged with its receipt.
// A pending transaction comes back without receipt fields.
func (s *Service) Transaction(ctx context.Context, id chain.ID, txID string) (normalize.Transaction, error) {
	reader, ok := s.readers[id]
	if !ok {
		return nil, connerr.UnsupportedChain(string(id), opTransaction)
	}
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return nil, chain.MissingField("txId")
	}

	nodeURL, err := s.nodeURL(ctx, id)
	if err != nil {
		return nil, err
	}
	lookup, err := read(ctx, s, func(ctx context.Context) (*chain.TxLookup, error) {
		return reader.Transaction(ctx, nodeURL, txID)
	})
	if err != nil {
		return nil, s.readFailed(id, opTransaction, txID, err)
	}
	if lookup == nil || lookup.State == chain.TxNotFound {
		return nil, connerr.TransactionNotFound(string(id), txID)
	}
	switch {
	case lookup.ReceiptErr != nil:
		s.logger.Error("receipt of %s on %s unavailable, returning the transaction alone: %v", txID, id, lookup.ReceiptErr)
	case lookup.State == chain.TxPending:
		s.logger.Debug("transaction %s on %s is pending", txID, id)
	}
	return normalize.For(id, s.codecs[id]).Transaction(lookup)
}

// ReadContract performs a read-only contract call.
func (s *Service) ReadContract(ctx context.Context, id chain.ID, call chain.ContractCall) (any, error) {
	reader, ok := s.readers[id].(chain.ContractReader)
	if !ok {
		return nil, connerr.UnsupportedChain(string(id), opReadContract)
	}
	if strings.TrimSpace(call.Contract) == "" {
		return nil, chain.MissingField("contractAddress")
	}
	if strings.TrimSpace(call.Method) == "" {
		return nil, chain.MissingField("method")
	}

	nodeURL, err := s.nodeURL(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := read(ctx, s, func(ctx context.Context) (any, error) {
		return reader.ReadContract(ctx, nodeURL, call)
	})
	if err != nil {
		s.logger.Error("reading %s.%s on %s: %v", call.Contract, call.Method, id, err)
		return nil, connerr.ContractCallFailed(string(id), call.Contract, call.Method, err)
	}
	return out, nil
}

// ContractAddress returns the address of the contract created by a deploy
// transaction. An unconfirmed deploy is TransactionNotFound.
func (s *Service) ContractAddress(ctx context.Context, id chain.ID, txID string) (string, error) {
	reader, ok := s.readers[id].(DeployReader)
	if !ok {
		return "", connerr.UnsupportedChain(string(id), opContractAddress)
	}
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return "", chain.MissingField("txId")
	}

	nodeURL, err := s.nodeURL(ctx, id)
	if err != nil {
		return "", err
	}
	addr, err := read(ctx, s, func(ctx context.Context) (string, error) {
		return reader.ContractAddress(ctx, nodeURL, txID)
	})
	if err != nil {
		return "", err
	}
	if addr == "" {
		return "", connerr.TransactionNotFound(string(id), txID)
	}
	return addr, nil
}

func (s *Service) nodeURL(ctx context.Context, id chain.ID) (string, error) {
	endpoint, err := s.endpoints.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return endpoint.NodeURL, nil
}

// readFailed classifies a failed block or transaction read. Errors the
// caller can act on (bad input, unknown chain, missing record or node
// configuration) keep their code; node failures become NODE_READ_FAILED.
func (s *Service) readFailed(id chain.ID, op, ref string, err error) error {
	var ce *connerr.ConnectorError
	if errors.As(err, &ce) {
		switch ce.ExitCode {
		case connerr.ExitInput, connerr.ExitNotFound, connerr.ExitConfig:
			return err
		}
	}
	s.logger.Error("reading %s %s on %s: %v", op, ref, id, err)
	return connerr.NodeReadFailed(string(id), op, ref, err)
}

// read runs a node read under the service timeout with retries.
func read[T any](ctx context.Context, s *Service, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return chain.RetryWithConfig(ctx, s.retry, fn)
}

func isHash(ref string) bool {
	return len(strings.TrimPrefix(ref, "0x")) >= minHashLength
}

func cacheHash(hash string) string {
	return strings.ToLower(strings.TrimPrefix(hash, "0x"))
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
