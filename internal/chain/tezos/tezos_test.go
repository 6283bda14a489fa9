package tezos_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain/tezos"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

func TestBroadcast(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/injection/operation", r.URL.Path)
		var op string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&op), "operation is sent as a JSON string")
		assert.Equal(t, "a1b2c3", op)
		_, _ = w.Write([]byte(`"ooXyz"`))
	}))
	t.Cleanup(server.Close)

	hash, err := tezos.NewNetwork(nil).Broadcast(context.Background(), server.URL, "a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "ooXyz", hash)
}

func TestBroadcast_RejectsNonHex(t *testing.T) {
	t.Parallel()

	_, err := tezos.NewNetwork(nil).Broadcast(context.Background(), "http://unused", "zz")
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}
