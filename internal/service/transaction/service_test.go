package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/events"
	"github.com/mrz1836/connector/internal/metrics"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

var (
	errNodeDown   = errors.New("node down")
	errKMSDown    = errors.New("kms down")
	errBadParams  = errors.New("bad params")
	errBrokerDown = errors.New("broker down")
)

const testNode = "https://node.example.com"

type fixture struct {
	service   *Service
	builder   *mockBuilder
	broadcast *mockBroadcaster
	store     *mockStore
	resolver  *staticResolver
	events    *recordingPublisher
	logger    *recordingLogger
	registry  *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		builder:   &mockBuilder{},
		broadcast: &mockBroadcaster{},
		store:     &mockStore{},
		resolver:  &staticResolver{endpoint: chain.Endpoint{NodeURL: testNode, Testnet: true}},
		events:    &recordingPublisher{},
		logger:    &recordingLogger{},
		registry:  prometheus.NewRegistry(),
	}
	registry := chain.NewRegistry(chain.AssetNative,
		chain.Entry{Route: chain.Route{Chain: chain.ETH, Operation: chain.Transfer}, Builder: f.builder},
	)
	f.service = NewService(&Config{
		Registry:  registry,
		Endpoints: f.resolver,
		Broadcast: f.broadcast,
		Store:     f.store,
		Events:    f.events,
		Metrics:   metrics.New(f.registry),
		Logger:    f.logger,
	})
	return f
}

func (f *fixture) operations(t *testing.T, outcome string) float64 {
	t.Helper()
	mfs, err := f.registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "connector_operations_total" {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					total += m.GetCounter().GetValue()
				}
			}
		}
		return total
	}
	return 0
}

func TestPrepareAndSubmit_KMSPathNeverBroadcasts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := &chain.Request{To: "0xabc", Amount: "1", SignatureID: "sig-1"}
	f.builder.On("Build", mock.Anything, req, chain.Endpoint{NodeURL: testNode, Testnet: true}).
		Return(chain.TransactionData("0xdeadbeef"), nil).Once()
	f.store.On("Store", mock.Anything, chain.TransactionData("0xdeadbeef"), chain.ETH, []string{"sig-1"}, (*int)(nil)).
		Return("stored-1", nil).Once()

	result, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, req)
	require.NoError(t, err)
	assert.Equal(t, &Result{SignatureID: "stored-1"}, result)

	f.builder.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.broadcast.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.PathKMS, f.events.events[0].Path)
	assert.Equal(t, "stored-1", f.events.events[0].SignatureID)
	assert.InDelta(t, 1, f.operations(t, metrics.OutcomeStored), 0)
}

func TestPrepareAndSubmit_SignedPathNeverStores(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := &chain.Request{To: "0xabc", Amount: "1", FromPrivateKey: "0x01"}
	f.builder.On("Build", mock.Anything, req, mock.Anything).Return(chain.TransactionData("0xdeadbeef"), nil).Once()
	f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0xdeadbeef")).Return("0x123", nil).Once()

	result, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, req)
	require.NoError(t, err)
	assert.Equal(t, &Result{TxID: "0x123"}, result)

	f.broadcast.AssertExpectations(t)
	f.store.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "0x123", f.events.events[0].TxID)
	assert.Equal(t, chain.AssetNative, f.events.events[0].Asset)
	assert.InDelta(t, 1, f.operations(t, metrics.OutcomeBroadcast), 0)
}

func TestPrepareAndSubmit_IndexForwarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	index := 4
	req := &chain.Request{To: "0xabc", Amount: "1", SignatureID: "sig", Index: &index}
	f.builder.On("Build", mock.Anything, req, mock.Anything).Return(chain.TransactionData("{}"), nil)
	f.store.On("Store", mock.Anything, chain.TransactionData("{}"), chain.ETH, []string{"sig"}, &index).Return("stored", nil)

	_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, req)
	require.NoError(t, err)
	f.store.AssertExpectations(t)
}

func TestPrepareAndSubmit_UnsupportedChain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service.PrepareAndSubmit(context.Background(), "FOO_CHAIN", chain.Transfer, &chain.Request{})
	require.ErrorIs(t, err, connerr.ErrUnsupportedChain)
	assert.Equal(t, map[string]string{"chain": "FOO_CHAIN", "operation": "Transfer"}, connerr.Details(err))
	assert.Zero(t, f.resolver.calls, "lookup fails before any network call")

	_, err = f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Mint, &chain.Request{})
	require.ErrorIs(t, err, connerr.ErrUnsupportedChain)
}

func TestPrepareAndSubmit_NoNodeURL(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.resolver.err = connerr.NoNodeURL("ETH")

	_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, &chain.Request{})
	require.ErrorIs(t, err, connerr.ErrNoNodeURL)
	f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)
}

func TestPrepareAndSubmit_InvalidRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := &chain.Request{FromPrivateKey: "0x01", SignatureID: "sig"}
	_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, req)
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
	assert.Zero(t, f.resolver.calls)
}

func TestPrepareAndSubmit_FailuresAreWrapped(t *testing.T) {
	t.Parallel()

	t.Run("build", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(chain.TransactionData(""), errBadParams)

		_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, &chain.Request{})
		require.ErrorIs(t, err, connerr.ErrBuild)
		require.ErrorIs(t, err, errBadParams)
		assert.Equal(t, map[string]string{"chain": "ETH", "operation": "Transfer"}, connerr.Details(err))
		f.broadcast.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
		require.Len(t, f.events.events, 1)
		assert.True(t, f.events.events[0].Failed)
		assert.Equal(t, "BUILD_FAILED", f.events.events[0].Error)
		assert.InDelta(t, 1, f.operations(t, metrics.OutcomeFailed), 0)
	})

	t.Run("broadcast", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(chain.TransactionData("0x01"), nil)
		f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0x01")).Return("", errNodeDown)

		_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, &chain.Request{})
		require.ErrorIs(t, err, connerr.ErrBroadcast)
		require.ErrorIs(t, err, errNodeDown)
		assert.Equal(t, map[string]string{"chain": "ETH"}, connerr.Details(err))
	})

	t.Run("kms store", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(chain.TransactionData("{}"), nil)
		f.store.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errKMSDown)

		_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, &chain.Request{SignatureID: "sig"})
		require.ErrorIs(t, err, connerr.ErrKMSStore)
		require.ErrorIs(t, err, errKMSDown)
		f.broadcast.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPrepareAndSubmit_BuildTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.service.timeouts.Build = 10 * time.Millisecond

	f.builder.On("Build", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(chain.TransactionData(""), context.DeadlineExceeded)

	_, err := f.service.PrepareAndSubmit(context.Background(), chain.ETH, chain.Transfer, &chain.Request{})
	require.ErrorIs(t, err, connerr.ErrBuild)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPrepareAndSubmit_BroadcastOperation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broadcast.On("Broadcast", mock.Anything, chain.TRON, chain.TransactionData("{\"txID\":\"aa\"}")).Return("aa", nil)

	result, err := f.service.PrepareAndSubmit(context.Background(), chain.TRON, chain.Broadcast, &chain.Request{TxData: "{\"txID\":\"aa\"}"})
	require.NoError(t, err)
	assert.Equal(t, "aa", result.TxID)
	f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)

	_, err = f.service.PrepareAndSubmit(context.Background(), chain.TRON, chain.Broadcast, &chain.Request{})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}

func TestBroadcast_CompletesPendingSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0xsigned")).Return("0xaaa", nil)
	f.store.On("Complete", mock.Anything, "sig-1", "0xaaa").Return(nil).Once()

	result, err := f.service.Broadcast(context.Background(), chain.ETH, "0xsigned", "sig-1")
	require.NoError(t, err)
	assert.Equal(t, &Result{TxID: "0xaaa"}, result)
	f.store.AssertExpectations(t)
}

func TestBroadcast_CompletionFailureIsReportedNotFatal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0xsigned")).Return("0xaaa", nil)
	f.store.On("Complete", mock.Anything, "sig-1", "0xaaa").Return(errKMSDown)

	result, err := f.service.Broadcast(context.Background(), chain.ETH, "0xsigned", "sig-1")
	require.NoError(t, err)
	assert.Equal(t, &Result{TxID: "0xaaa", Failed: true}, result)
	assert.Len(t, f.logger.errors, 1)
	assert.True(t, f.events.events[0].Failed)

	mfs, err := f.registry.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "connector_kms_complete_failures_total" {
			found = true
			assert.InDelta(t, 1, mf.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
	assert.True(t, found)
}

func TestBroadcast_WithoutSignatureSkipsStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broadcast.On("Broadcast", mock.Anything, chain.BSC, chain.TransactionData("0xsigned")).Return("0xbbb", nil)

	result, err := f.service.Broadcast(context.Background(), chain.BSC, "0xsigned", "")
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", result.TxID)
	f.store.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcast_Failure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0xsigned")).Return("", errNodeDown)

	_, err := f.service.Broadcast(context.Background(), chain.ETH, "0xsigned", "sig-1")
	require.ErrorIs(t, err, connerr.ErrBroadcast)
	f.store.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)

	_, err = f.service.Broadcast(context.Background(), chain.ETH, "  ", "")
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}

func TestPublishFailureIsLogged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.events.err = errBrokerDown
	f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0xsigned")).Return("0xaaa", nil)

	result, err := f.service.Broadcast(context.Background(), chain.ETH, "0xsigned", "")
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", result.TxID)
	assert.Len(t, f.logger.errors, 1)
}

func TestNewService_Defaults(t *testing.T) {
	t.Parallel()

	s := NewService(&Config{Registry: chain.NewRegistry(chain.AssetERC20)})
	assert.Equal(t, chain.AssetERC20, s.Asset())
	assert.Equal(t, DefaultBuildTimeout, s.timeouts.Build)
	assert.Equal(t, DefaultKMSTimeout, s.timeouts.KMS)
	assert.IsType(t, events.Nop{}, s.events)
}

func TestBroadcast_RoutingErrorsKeepTheirCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.broadcast.On("Broadcast", mock.Anything, chain.ETH, chain.TransactionData("0xsigned")).Return("", connerr.NoNodeURL("ETH"))

	_, err := f.service.Broadcast(context.Background(), chain.ETH, "0xsigned", "")
	require.ErrorIs(t, err, connerr.ErrNoNodeURL)
	assert.NotErrorIs(t, err, connerr.ErrBroadcast)
}
