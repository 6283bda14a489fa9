package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/cache"
	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/evm"
	"github.com/mrz1836/connector/internal/metrics"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

var errReverted = errors.New("execution reverted")

const (
	testNode     = "https://node.example.com"
	testContract = "0x52908400098527886E0F7030069857D2E4169EE7"
	testHolder   = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	blockHash    = "0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6"
)

type fakeReader struct {
	mu        sync.Mutex
	blocks    map[string]map[string]any
	lookups   map[string]*chain.TxLookup
	results   map[string]any
	errs      map[string]error
	deploys   map[string]string
	txErr     error
	calls     []chain.ContractCall
	blockHits atomic.Int32
	failures  atomic.Int32 // transient failures left before a read succeeds
}

func (f *fakeReader) Block(_ context.Context, nodeURL, ref string) (map[string]any, error) {
	if nodeURL != testNode {
		return nil, errors.New("wrong node " + nodeURL)
	}
	f.blockHits.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return nil, connerr.ErrNetworkError
	}
	return f.blocks[ref], nil
}

func (f *fakeReader) Transaction(_ context.Context, _, txID string) (*chain.TxLookup, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	if l, ok := f.lookups[txID]; ok {
		return l, nil
	}
	return &chain.TxLookup{State: chain.TxNotFound}, nil
}

func (f *fakeReader) ReadContract(_ context.Context, _ string, call chain.ContractCall) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if err := f.errs[call.Method]; err != nil {
		return nil, err
	}
	return f.results[call.Method], nil
}

func (f *fakeReader) ContractAddress(_ context.Context, _, txID string) (string, error) {
	return f.deploys[txID], nil
}

// blockOnly has no contract support.
type blockOnly struct{ chain.BlockReader }

type staticResolver struct{ err error }

func (r staticResolver) Resolve(context.Context, chain.ID) (chain.Endpoint, error) {
	return chain.Endpoint{NodeURL: testNode}, r.err
}

func newTestService(t *testing.T, reader *fakeReader, blockCache *cache.BlockCache) *Service {
	t.Helper()
	retry := chain.RetryConfig{MaxAttempts: 3}
	return NewService(&Config{
		Readers: map[chain.ID]chain.BlockReader{
			chain.ETH:  reader,
			chain.TRON: reader,
			chain.QTUM: blockOnly{reader},
		},
		Codecs:    map[chain.ID]chain.AddressCodec{chain.ETH: evm.HexCodec{}},
		Endpoints: staticResolver{},
		Cache:     blockCache,
		Retry:     &retry,
	})
}

func rawBlock() map[string]any {
	return map[string]any{
		"hash":         blockHash,
		"number":       "0x10",
		"gasUsed":      "0x5208",
		"transactions": []any{},
	}
}

func TestBlock_NormalizedAndCached(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	blockCache, err := cache.NewBlockCache(1<<20, metrics.New(reg))
	require.NoError(t, err)
	t.Cleanup(blockCache.Close)

	reader := &fakeReader{blocks: map[string]map[string]any{"16": rawBlock(), blockHash: rawBlock()}}
	s := newTestService(t, reader, blockCache)

	block, err := s.Block(context.Background(), chain.ETH, "16")
	require.NoError(t, err)
	assert.Equal(t, json.Number("16"), block["number"])
	assert.Equal(t, json.Number("21000"), block["gasUsed"])
	blockCache.Wait()

	cached, err := s.Block(context.Background(), chain.ETH, blockHash)
	require.NoError(t, err)
	assert.Equal(t, block, cached)
	assert.Equal(t, int32(1), reader.blockHits.Load(), "second lookup served from cache")
}

func TestBlock_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{blocks: map[string]map[string]any{"16": rawBlock()}}
	reader.failures.Store(2)
	s := newTestService(t, reader, nil)
	s.retry.BaseDelay = 0

	block, err := s.Block(context.Background(), chain.ETH, "16")
	require.NoError(t, err)
	assert.Equal(t, json.Number("16"), block["number"])
	assert.Equal(t, int32(3), reader.blockHits.Load())
}

func TestBlock_Errors(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	s := newTestService(t, reader, nil)

	_, err := s.Block(context.Background(), chain.ETH, "99")
	require.ErrorIs(t, err, connerr.ErrBlockNotFound)

	_, err = s.Block(context.Background(), chain.FLOW, "1")
	require.ErrorIs(t, err, connerr.ErrUnsupportedChain)

	_, err = s.Block(context.Background(), chain.ETH, " ")
	require.ErrorIs(t, err, connerr.ErrInvalidInput)

	s.endpoints = staticResolver{err: connerr.NoNodeURL("ETH")}
	_, err = s.Block(context.Background(), chain.ETH, "1")
	require.ErrorIs(t, err, connerr.ErrNoNodeURL)
}

func TestTransaction(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{lookups: map[string]*chain.TxLookup{
		"0xaaa": {
			State:   chain.TxFound,
			Tx:      map[string]any{"hash": "0xaaa", "nonce": "0x1", "r": "0x1", "s": "0x2", "v": "0x1b"},
			Receipt: map[string]any{"transactionHash": "0xaaa", "status": "0x1", "gasUsed": "0x5208"},
		},
		"0xbbb": {
			State: chain.TxPending,
			Tx:    map[string]any{"hash": "0xbbb", "nonce": "0x2"},
		},
	}}
	s := newTestService(t, reader, nil)

	tx, err := s.Transaction(context.Background(), chain.ETH, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", tx["transactionHash"])
	assert.Equal(t, true, tx["status"])
	assert.NotContains(t, tx, "r")

	pending, err := s.Transaction(context.Background(), chain.ETH, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", pending["transactionHash"])
	assert.NotContains(t, pending, "status")

	_, err = s.Transaction(context.Background(), chain.ETH, "0xccc")
	require.ErrorIs(t, err, connerr.ErrTransactionNotFound)
	assert.Equal(t, map[string]string{"chain": "ETH", "txId": "0xccc"}, connerr.Details(err))
}

func TestTransaction_ReceiptUnavailable(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{lookups: map[string]*chain.TxLookup{
		"0xddd": {
			State:      chain.TxPending,
			Tx:         map[string]any{"hash": "0xddd", "blockNumber": "0x10"},
			ReceiptErr: connerr.ErrNetworkError,
		},
	}}
	s := newTestService(t, reader, nil)

	tx, err := s.Transaction(context.Background(), chain.ETH, "0xddd")
	require.NoError(t, err)
	assert.Equal(t, "0xddd", tx["transactionHash"])
	assert.Equal(t, json.Number("16"), tx["blockNumber"])
	assert.NotContains(t, tx, "status")
	assert.NotContains(t, tx, "gasUsed")
}

func TestReads_NodeFailuresAreClassified(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{txErr: errors.New("node answered HTTP 404")}
	reader.failures.Store(10)
	s := newTestService(t, reader, nil)
	s.retry.BaseDelay = 0

	_, err := s.Block(context.Background(), chain.ETH, "16")
	require.ErrorIs(t, err, connerr.ErrNodeRead)
	require.ErrorIs(t, err, connerr.ErrNetworkError, "cause kept")
	assert.Equal(t, map[string]string{"chain": "ETH", "operation": "Block", "ref": "16"}, connerr.Details(err))

	_, err = s.Transaction(context.Background(), chain.TRON, "aa")
	require.ErrorIs(t, err, connerr.ErrNodeRead)
	assert.Equal(t, "NODE_READ_FAILED", connerr.Code(err))
	assert.Equal(t, connerr.ExitUpstream, connerr.ExitCode(err))
}

func TestReadContract(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		results: map[string]any{"symbol": "TKN"},
		errs:    map[string]error{"name": errReverted},
	}
	s := newTestService(t, reader, nil)

	out, err := s.ReadContract(context.Background(), chain.ETH, chain.ContractCall{Contract: testContract, Method: "symbol"})
	require.NoError(t, err)
	assert.Equal(t, "TKN", out)

	_, err = s.ReadContract(context.Background(), chain.ETH, chain.ContractCall{Contract: testContract, Method: "name"})
	require.ErrorIs(t, err, connerr.ErrContractCall)
	require.ErrorIs(t, err, errReverted)
	assert.Equal(t, map[string]string{"chain": "ETH", "contract": testContract, "method": "name"}, connerr.Details(err))

	_, err = s.ReadContract(context.Background(), chain.QTUM, chain.ContractCall{Contract: testContract, Method: "name"})
	require.ErrorIs(t, err, connerr.ErrUnsupportedChain)

	_, err = s.ReadContract(context.Background(), chain.ETH, chain.ContractCall{Method: "name"})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}

func TestERC20Balance(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{results: map[string]any{
		"balanceOf": "1500000000000000000",
		"decimals":  uint8(18),
	}}
	s := newTestService(t, reader, nil)

	bal, err := s.ERC20Balance(context.Background(), chain.ETH, testContract, testHolder)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", bal.Raw)
	assert.True(t, decimal.RequireFromString("1.5").Equal(bal.Balance))
	assert.Equal(t, 18, bal.Decimals)
	assert.Len(t, reader.calls, 2)
}

func TestNFTRoyalty(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{results: map[string]any{
		"tokenCashbackRecipients": []any{testHolder},
		"tokenCashbackValues":     []any{"250000000000000000"},
	}}
	s := newTestService(t, reader, nil)

	royalty, err := s.NFTRoyalty(context.Background(), chain.ETH, testContract, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{testHolder}, royalty.Addresses)
	require.Len(t, royalty.Values, 1)
	assert.Equal(t, "0.25", royalty.Values[0].String())

	// TRON values are in sun.
	reader.results["tokenCashbackValues"] = []any{"2500000"}
	royalty, err = s.NFTRoyalty(context.Background(), chain.TRON, "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf", "1")
	require.NoError(t, err)
	assert.Equal(t, "2.5", royalty.Values[0].String())
}

func TestNFTQueries(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{results: map[string]any{
		"tokenURI":      "ipfs://token/7",
		"tokensOfOwner": []any{"1", "7"},
	}}
	s := newTestService(t, reader, nil)

	uri, err := s.NFTMetadata(context.Background(), chain.ETH, testContract, "7")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://token/7", uri)

	ids, err := s.NFTTokensOfOwner(context.Background(), chain.ETH, testContract, testHolder)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "7"}, ids)

	_, err = s.NFTMetadata(context.Background(), chain.ETH, testContract, "")
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}

func TestMultiTokenQueries(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{results: map[string]any{
		"uri":            "https://meta.example.com/{id}.json",
		"balanceOf":      "5",
		"balanceOfBatch": []any{"5", "0"},
	}}
	s := newTestService(t, reader, nil)

	uri, err := s.MultiTokenMetadata(context.Background(), chain.ETH, testContract, "42")
	require.NoError(t, err)
	assert.Equal(t, "https://meta.example.com/42.json", uri)

	bal, err := s.MultiTokenBalance(context.Background(), chain.ETH, testContract, testHolder, "42")
	require.NoError(t, err)
	assert.Equal(t, "5", bal)

	balances, err := s.MultiTokenBalanceBatch(context.Background(), chain.ETH, testContract,
		[]string{testHolder, testHolder}, []string{"42", "43"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "0"}, balances)

	_, err = s.MultiTokenBalanceBatch(context.Background(), chain.ETH, testContract, []string{testHolder}, []string{"1", "2"})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}

func TestContractAddress(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{deploys: map[string]string{"0xdeploy": testContract}}
	s := newTestService(t, reader, nil)

	addr, err := s.ContractAddress(context.Background(), chain.ETH, "0xdeploy")
	require.NoError(t, err)
	assert.Equal(t, testContract, addr)

	_, err = s.ContractAddress(context.Background(), chain.ETH, "0xpending")
	require.ErrorIs(t, err, connerr.ErrTransactionNotFound)

	_, err = s.ContractAddress(context.Background(), chain.QTUM, "0xdeploy")
	require.ErrorIs(t, err, connerr.ErrUnsupportedChain)
}

func TestChains(t *testing.T) {
	t.Parallel()
	s := newTestService(t, &fakeReader{}, nil)
	assert.Equal(t, []chain.ID{chain.ETH, chain.TRON, chain.QTUM}, s.Chains())
}
