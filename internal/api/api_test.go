package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/kms"
	"github.com/mrz1836/connector/internal/metrics"
	"github.com/mrz1836/connector/internal/normalize"
	"github.com/mrz1836/connector/internal/service/query"
	"github.com/mrz1836/connector/internal/service/transaction"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

//nolint:gochecknoinits // Quiet gin output in tests
func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSubmitter struct {
	asset     chain.Asset
	lastReq   *chain.Request
	lastOp    chain.Operation
	lastChain chain.ID
	result    *transaction.Result
	err       error
}

func (f *fakeSubmitter) Asset() chain.Asset { return f.asset }

func (f *fakeSubmitter) PrepareAndSubmit(_ context.Context, id chain.ID, op chain.Operation, req *chain.Request) (*transaction.Result, error) {
	f.lastChain, f.lastOp, f.lastReq = id, op, req
	return f.result, f.err
}

func (f *fakeSubmitter) Broadcast(_ context.Context, id chain.ID, txData chain.TransactionData, signatureID string) (*transaction.Result, error) {
	f.lastChain = id
	f.lastReq = &chain.Request{TxData: string(txData), SignatureID: signatureID}
	return f.result, f.err
}

type fakeReader struct {
	err  error
	call chain.ContractCall
}

func (f *fakeReader) Block(_ context.Context, _ chain.ID, ref string) (normalize.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	return normalize.Block{"number": json.Number(ref), "hash": "0xabc"}, nil
}

func (f *fakeReader) Transaction(_ context.Context, id chain.ID, txID string) (normalize.Transaction, error) {
	return nil, connerr.TransactionNotFound(string(id), txID)
}

func (f *fakeReader) ReadContract(_ context.Context, _ chain.ID, call chain.ContractCall) (any, error) {
	f.call = call
	return "TKN", f.err
}

func (f *fakeReader) ContractAddress(context.Context, chain.ID, string) (string, error) {
	return "0xcontract", nil
}

func (f *fakeReader) ERC20Balance(context.Context, chain.ID, string, string) (*query.TokenBalance, error) {
	return &query.TokenBalance{Raw: "1500", Balance: decimal.RequireFromString("1.5"), Decimals: 3}, nil
}

func (f *fakeReader) NFTMetadata(context.Context, chain.ID, string, string) (string, error) {
	return "ipfs://1", nil
}

func (f *fakeReader) NFTRoyalty(context.Context, chain.ID, string, string) (*query.Royalty, error) {
	return &query.Royalty{Addresses: []string{"0x1"}, Values: []decimal.Decimal{decimal.RequireFromString("0.25")}}, nil
}

func (f *fakeReader) NFTTokensOfOwner(context.Context, chain.ID, string, string) ([]string, error) {
	return []string{"1", "2"}, nil
}

func (f *fakeReader) MultiTokenMetadata(context.Context, chain.ID, string, string) (string, error) {
	return "https://meta/42.json", nil
}

func (f *fakeReader) MultiTokenBalance(context.Context, chain.ID, string, string, string) (string, error) {
	return "5", nil
}

func (f *fakeReader) MultiTokenBalanceBatch(_ context.Context, _ chain.ID, _ string, addresses, _ []string) ([]string, error) {
	out := make([]string, len(addresses))
	for i := range out {
		out[i] = "1"
	}
	return out, nil
}

type testServer struct {
	router  *gin.Engine
	native  *fakeSubmitter
	nft     *fakeSubmitter
	reader  *fakeReader
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	ts := &testServer{
		native: &fakeSubmitter{asset: chain.AssetNative, result: &transaction.Result{TxID: "0x123"}},
		nft:    &fakeSubmitter{asset: chain.AssetNFT, result: &transaction.Result{SignatureID: "stored-1"}},
		reader: &fakeReader{},
		reg:    reg,
	}
	ts.metrics = metrics.New(reg)
	ts.router = NewRouter(&Config{
		Submitters: map[chain.Asset]Submitter{chain.AssetNative: ts.native, chain.AssetNFT: ts.nft},
		Reader:     ts.reader,
		Chains:     []ChainInfo{{Chain: chain.ETH, Broadcast: true, Read: true}},
		Metrics:    ts.metrics,
		Gatherer:   reg,
		Version:    "test",
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSubmit(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/submit/native/eth/transfer",
		`{"to":"0xabc","amount":"1","fromPrivateKey":"0x01","params":[12345678901234567890123]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"txId":"0x123"}`, w.Body.String())
	assert.Equal(t, chain.ETH, ts.native.lastChain)
	assert.Equal(t, chain.Transfer, ts.native.lastOp)
	assert.Equal(t, "0xabc", ts.native.lastReq.To)
	assert.Equal(t, json.Number("12345678901234567890123"), ts.native.lastReq.Params[0])

	w = ts.do(t, http.MethodPost, "/v1/submit/nft/ETH/Mint", `{"to":"0xabc","signatureId":"sig"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"signatureId":"stored-1"}`, w.Body.String())
}

func TestSubmit_BadInput(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{"unknown asset", "/v1/submit/bogus/ETH/Transfer", `{}`, "INVALID_INPUT"},
		{"asset without service", "/v1/submit/erc20/ETH/Transfer", `{}`, "INVALID_INPUT"},
		{"unknown chain", "/v1/submit/native/FOO_CHAIN/Transfer", `{}`, "UNSUPPORTED_CHAIN"},
		{"unknown operation", "/v1/submit/native/ETH/Transfr", `{}`, "INVALID_INPUT"},
		{"malformed body", "/v1/submit/native/ETH/Transfer", `{`, "INVALID_INPUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).ErrorCode)
		})
	}

	w := ts.do(t, http.MethodPost, "/v1/submit/native/ETH/Transfr", `{}`)
	assert.Equal(t, `did you mean "Transfer"?`, decodeError(t, w).Suggestion)
}

func TestSubmit_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unsupported", connerr.UnsupportedChain("FLOW", "Transfer"), http.StatusBadRequest, "UNSUPPORTED_CHAIN"},
		{"build", connerr.BuildFailed("ETH", "Transfer", assert.AnError), http.StatusBadRequest, "BUILD_FAILED"},
		{"no node", connerr.NoNodeURL("ETH"), http.StatusServiceUnavailable, "NO_NODE_URL"},
		{"broadcast", connerr.BroadcastFailed("ETH", assert.AnError), http.StatusBadGateway, "BROADCAST_FAILED"},
		{"kms store", connerr.KMSStoreFailed("ETH", assert.AnError), http.StatusBadGateway, "KMS_STORE_FAILED"},
		{"kms disabled", connerr.KMSStoreFailed("ETH", kms.ErrDisabled), http.StatusServiceUnavailable, "KMS_STORE_FAILED"},
		{"deadline", connerr.BuildFailed("ETH", "Transfer", context.DeadlineExceeded), http.StatusGatewayTimeout, "BUILD_FAILED"},
		{"plain", assert.AnError, http.StatusInternalServerError, "GENERAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			ts.native.err = tc.err

			w := ts.do(t, http.MethodPost, "/v1/submit/native/ETH/Transfer", `{}`)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).ErrorCode)
		})
	}
}

func TestSubmit_ErrorDetails(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.native.err = connerr.UnsupportedChain("FLOW", "Mint")

	w := ts.do(t, http.MethodPost, "/v1/submit/native/FLOW/Mint", `{}`)
	resp := decodeError(t, w)
	assert.Equal(t, map[string]string{"chain": "FLOW", "operation": "Mint"}, resp.Details)
	assert.NotEmpty(t, resp.Message)
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/broadcast/ethereum", `{"txData":"0xdeadbeef","signatureId":"sig-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chain.ETH, ts.native.lastChain)
	assert.Equal(t, "0xdeadbeef", ts.native.lastReq.TxData)
	assert.Equal(t, "sig-1", ts.native.lastReq.SignatureID)

	w = ts.do(t, http.MethodPost, "/v1/broadcast/ETH", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReads(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"block", http.MethodGet, "/v1/block/ETH/16", "", `{"number":16,"hash":"0xabc"}`},
		{"contract address", http.MethodGet, "/v1/contract/ETH/address/0xdeploy", "", `{"contractAddress":"0xcontract"}`},
		{"erc20 balance", http.MethodGet, "/v1/erc20/ETH/balance/0xc/0xa", "", `{"raw":"1500","balance":"1.5","decimals":3}`},
		{"nft metadata", http.MethodGet, "/v1/nft/ETH/metadata/0xc/1", "", `{"data":"ipfs://1"}`},
		{"nft royalty", http.MethodGet, "/v1/nft/ETH/royalty/0xc/1", "", `{"addresses":["0x1"],"values":["0.25"]}`},
		{"nft tokens", http.MethodGet, "/v1/nft/ETH/tokens/0xc/0xa", "", `{"data":["1","2"]}`},
		{"multitoken metadata", http.MethodGet, "/v1/multitoken/ETH/metadata/0xc/42", "", `{"data":"https://meta/42.json"}`},
		{"multitoken balance", http.MethodGet, "/v1/multitoken/ETH/balance/0xc/0xa/42", "", `{"data":"5"}`},
		{
			"multitoken batch", http.MethodPost, "/v1/multitoken/ETH/balance/batch",
			`{"contractAddress":"0xc","addresses":["0xa","0xb"],"tokenIds":["1","2"]}`, `{"data":["1","1"]}`,
		},
		{
			"contract read", http.MethodPost, "/v1/contract/ETH/read",
			`{"contractAddress":"0xc","method":"symbol"}`, `{"data":"TKN"}`,
		},
		{"chains", http.MethodGet, "/v1/chains", "", `[{"chain":"ETH","broadcast":true,"read":true}]`},
		{"health", http.MethodGet, "/healthz", "", `{"status":"ok","version":"test"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}
}

func TestReadContract_ABIForms(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/contract/ETH/read",
		`{"contractAddress":"0xc","method":"get","abi":{"type":"function","name":"get","inputs":[]},"args":[1]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"type":"function","name":"get","inputs":[]}`, ts.reader.call.ABI)
	assert.Equal(t, []any{json.Number("1")}, ts.reader.call.Args)

	w = ts.do(t, http.MethodPost, "/v1/contract/ETH/read",
		`{"contractAddress":"0xc","method":"get","abi":"[]"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", ts.reader.call.ABI)

	w = ts.do(t, http.MethodPost, "/v1/contract/ETH/read", `{"method":"get"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/transaction/ETH/0xmissing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "TRANSACTION_NOT_FOUND", resp.ErrorCode)
	assert.Equal(t, "0xmissing", resp.Details["txId"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/healthz", "")
	ts.do(t, http.MethodGet, "/no/such/route", "")

	w := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `connector_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
	assert.NotContains(t, w.Body.String(), "/no/such/route")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	srv := NewServer("127.0.0.1:0", ts.router, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
}
