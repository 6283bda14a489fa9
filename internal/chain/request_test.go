package chain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	negative := -1
	tooMany := 40

	tests := []struct {
		name    string
		req     *chain.Request
		op      chain.Operation
		wantErr bool
	}{
		{"kms path", &chain.Request{To: "0xabc", Amount: "1", SignatureID: "sig-1"}, chain.Transfer, false},
		{"key path", &chain.Request{To: "0xabc", Amount: "1", FromPrivateKey: "0x01"}, chain.Transfer, false},
		{"neither left to builder", &chain.Request{To: "0xabc", Amount: "1"}, chain.Transfer, false},
		{"both signing inputs", &chain.Request{FromPrivateKey: "0x01", SignatureID: "sig"}, chain.Transfer, true},
		{"negative index", &chain.Request{SignatureID: "sig", Index: &negative}, chain.Mint, true},
		{"digits out of range", &chain.Request{Digits: &tooMany}, chain.Deploy, true},
		{"nil request", nil, chain.Transfer, true},
		{"broadcast needs txData", &chain.Request{}, chain.Broadcast, true},
		{"broadcast with txData", &chain.Request{TxData: "0xf8", SignatureID: "sig"}, chain.Broadcast, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate(tt.op)
			if tt.wantErr {
				require.ErrorIs(t, err, connerr.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRequest_UsesKMS(t *testing.T) {
	t.Parallel()

	assert.True(t, (&chain.Request{SignatureID: "s"}).UsesKMS())
	assert.False(t, (&chain.Request{FromPrivateKey: "k"}).UsesKMS())
}
