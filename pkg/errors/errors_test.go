package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connerr "github.com/mrz1836/connector/pkg/errors"
)

var (
	errInner     = errors.New("inner")
	errRootCause = errors.New("root cause")
	errPlain     = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, connerr.ExitSuccess},
		{"general error", connerr.ErrGeneral, connerr.ExitGeneral},
		{"input error", connerr.ErrInvalidInput, connerr.ExitInput},
		{"not found error", connerr.ErrNotFound, connerr.ExitNotFound},
		{"unsupported chain", connerr.UnsupportedChain("FOO", "Transfer"), connerr.ExitInput},
		{"no node url", connerr.NoNodeURL("ETH"), connerr.ExitConfig},
		{"broadcast", connerr.BroadcastFailed("ETH", errInner), connerr.ExitUpstream},
		{"plain error", errPlain, connerr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, connerr.ExitCode(tt.err))
		})
	}
}

func TestTaxonomyDetails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		details  map[string]string
	}{
		{
			name:     "unsupported chain",
			err:      connerr.UnsupportedChain("FOO_CHAIN", "Transfer"),
			sentinel: connerr.ErrUnsupportedChain,
			details:  map[string]string{"chain": "FOO_CHAIN", "operation": "Transfer"},
		},
		{
			name:     "no node url",
			err:      connerr.NoNodeURL("TRON"),
			sentinel: connerr.ErrNoNodeURL,
			details:  map[string]string{"chain": "TRON"},
		},
		{
			name:     "build",
			err:      connerr.BuildFailed("ETH", "Mint", errInner),
			sentinel: connerr.ErrBuild,
			details:  map[string]string{"chain": "ETH", "operation": "Mint"},
		},
		{
			name:     "kms store",
			err:      connerr.KMSStoreFailed("BSC", errInner),
			sentinel: connerr.ErrKMSStore,
			details:  map[string]string{"chain": "BSC"},
		},
		{
			name:     "contract call",
			err:      connerr.ContractCallFailed("ETH", "0xabc", "balanceOf", errInner),
			sentinel: connerr.ErrContractCall,
			details:  map[string]string{"chain": "ETH", "contract": "0xabc", "method": "balanceOf"},
		},
		{
			name:     "node read",
			err:      connerr.NodeReadFailed("TRON", "Transaction", "aa", errInner),
			sentinel: connerr.ErrNodeRead,
			details:  map[string]string{"chain": "TRON", "operation": "Transaction", "ref": "aa"},
		},
		{
			name:     "transaction not found",
			err:      connerr.TransactionNotFound("ETH", "0x1"),
			sentinel: connerr.ErrTransactionNotFound,
			details:  map[string]string{"chain": "ETH", "txId": "0x1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.details, connerr.Details(tt.err))
		})
	}
}

func TestTaxonomyKeepsCause(t *testing.T) {
	t.Parallel()

	err := connerr.BroadcastFailed("ETH", errRootCause)
	require.ErrorIs(t, err, errRootCause)
	assert.Contains(t, err.Error(), "root cause")
	assert.Contains(t, err.Error(), "(chain: ETH)")
}

func TestTaxonomyDoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	inner := connerr.BuildFailed("ETH", "Transfer", errInner)
	outer := connerr.BuildFailed("ETH", "Transfer", inner)
	assert.Same(t, inner, outer)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, connerr.Wrap(nil, "context"))
	})

	t.Run("connector error keeps code", func(t *testing.T) {
		t.Parallel()
		wrapped := connerr.Wrap(connerr.ErrNotFound, "block %d", 7)
		require.ErrorIs(t, wrapped, connerr.ErrNotFound)
		assert.Equal(t, "NOT_FOUND", connerr.Code(wrapped))
		assert.Contains(t, wrapped.Error(), "block 7")
	})

	t.Run("plain error becomes general", func(t *testing.T) {
		t.Parallel()
		wrapped := connerr.Wrap(errPlain, "context")
		assert.Equal(t, "GENERAL_ERROR", connerr.Code(wrapped))
		require.ErrorIs(t, wrapped, errPlain)
	})
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()

	err := connerr.WithDetails(connerr.ErrInvalidAddress, map[string]string{"field": "to"})
	err = connerr.WithSuggestion(err, "use a 0x address")

	var ce *connerr.ConnectorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "to", ce.Detail("field"))
	assert.Equal(t, "use a 0x address", ce.Suggestion)
	assert.Empty(t, ce.Detail("missing"))
	require.ErrorIs(t, err, connerr.ErrInvalidAddress)
}

func TestErrorStringSortsDetails(t *testing.T) {
	t.Parallel()

	err := connerr.UnsupportedChain("FOO", "Mint")
	assert.Equal(t, "chain does not support this operation (chain: FOO) (operation: Mint)", err.Error())
}
