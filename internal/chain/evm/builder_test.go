package evm_test

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
	"github.com/mrz1836/connector/internal/chain/evm"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// decodeSigned parses signed transaction data and returns it with its sender.
func decodeSigned(t *testing.T, data chain.TransactionData) (*types.Transaction, common.Address) {
	t.Helper()
	raw, err := hexutil.Decode(string(data))
	require.NoError(t, err)

	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))

	from, err := types.Sender(types.NewEIP155Signer(tx.ChainId()), tx)
	require.NoError(t, err)
	return tx, from
}

func keyAddress(t *testing.T) common.Address {
	t.Helper()
	key, err := crypto.HexToECDSA(strings.TrimPrefix(testKey, "0x"))
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey)
}

func TestNativeTransfer_Signed(t *testing.T) {
	t.Parallel()

	node, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetNative, chain.Transfer)

	data, err := b.Build(testContext(t), &chain.Request{
		To:             testRecipient,
		Amount:         "1.5",
		FromPrivateKey: testKey,
	}, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)

	tx, from := decodeSigned(t, data)
	assert.Equal(t, keyAddress(t), from)
	assert.Equal(t, common.HexToAddress(testRecipient), *tx.To())
	assert.Equal(t, "1500000000000000000", tx.Value().String())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(100000), tx.Gas())
	assert.Equal(t, "20000000000", tx.GasPrice().String())
	assert.Equal(t, int64(1), tx.ChainId().Int64())
	assert.False(t, node.called("eth_sendRawTransaction"), "builders never broadcast")
}

func TestNativeTransfer_FeeOverride(t *testing.T) {
	t.Parallel()

	node, url := defaultNode(t, nil)
	n := newNetwork(t, chain.BSC)
	b := builderFor(t, n, chain.AssetNative, chain.Transfer)

	nonce := uint64(42)
	data, err := b.Build(testContext(t), &chain.Request{
		To:             testRecipient,
		Amount:         "0.1",
		Data:           "hello",
		Fee:            &chain.Fee{GasLimit: "30000", GasPrice: "5.5"},
		Nonce:          &nonce,
		FromPrivateKey: testKey,
	}, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)

	tx, _ := decodeSigned(t, data)
	assert.Equal(t, uint64(30000), tx.Gas())
	assert.Equal(t, "5500000000", tx.GasPrice().String())
	assert.Equal(t, uint64(42), tx.Nonce())
	assert.Equal(t, []byte("hello"), tx.Data())
	assert.False(t, node.called("eth_gasPrice"))
	assert.False(t, node.called("eth_estimateGas"))
	assert.False(t, node.called("eth_getTransactionCount"))
}

func TestNativeTransfer_KMSPayload(t *testing.T) {
	t.Parallel()

	node, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetNative, chain.Transfer)

	data, err := b.Build(testContext(t), &chain.Request{
		To:          testRecipient,
		Amount:      "2",
		SignatureID: "26d3883e-4e17-48b3-a0ee-09a3e484ac83",
	}, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)

	var utx evm.UnsignedTx
	require.NoError(t, json.Unmarshal([]byte(data), &utx))
	assert.Equal(t, "1", utx.ChainID)
	assert.Equal(t, common.HexToAddress(testRecipient).Hex(), utx.To)
	assert.Equal(t, "2000000000000000000", utx.Value)
	assert.Equal(t, uint64(100000), utx.GasLimit)
	assert.Nil(t, utx.Nonce, "nonce is left to the signer without a from address")
	assert.False(t, node.called("eth_getTransactionCount"))
}

func TestBuild_RequiresSigningInput(t *testing.T) {
	t.Parallel()

	_, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetNative, chain.Transfer)

	_, err := b.Build(testContext(t), &chain.Request{To: testRecipient, Amount: "1"}, chain.Endpoint{NodeURL: url})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)

	_, err = b.Build(testContext(t), &chain.Request{To: testRecipient, Amount: "1", FromPrivateKey: "0xzz"},
		chain.Endpoint{NodeURL: url})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
	assert.NotContains(t, err.Error(), "0xzz")
}

func TestERC20Transfer_ReadsDecimals(t *testing.T) {
	t.Parallel()

	six := "0x" + strings.Repeat("0", 63) + "6"
	node, url := defaultNode(t, map[string]any{"eth_call": six})
	n := newNetwork(t, chain.MATIC)
	b := builderFor(t, n, chain.AssetERC20, chain.Transfer)

	data, err := b.Build(testContext(t), &chain.Request{
		To:              testRecipient,
		Amount:          "12.5",
		ContractAddress: testToken,
		FromPrivateKey:  testKey,
	}, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)
	assert.True(t, node.called("eth_call"))

	tx, _ := decodeSigned(t, data)
	assert.Equal(t, common.HexToAddress(testToken), *tx.To())
	assert.Equal(t, "a9059cbb", hex.EncodeToString(tx.Data()[:4]))
	assert.Equal(t, int64(12500000), new(big.Int).SetBytes(tx.Data()[36:68]).Int64())
}

func TestERC20Deploy(t *testing.T) {
	t.Parallel()

	_, url := defaultNode(t, nil)
	n := newNetwork(t, chain.CELO)
	b := builderFor(t, n, chain.AssetERC20, chain.Deploy)
	digits := 8

	_, err := b.Build(testContext(t), &chain.Request{
		Name: "Token", Symbol: "TKN", Digits: &digits, Supply: "100", FromPrivateKey: testKey,
	}, chain.Endpoint{NodeURL: url})
	require.ErrorIs(t, err, connerr.ErrInvalidInput, "bytecode is required")

	data, err := b.Build(testContext(t), &chain.Request{
		Name: "Token", Symbol: "TKN", Digits: &digits, Supply: "100", TotalCap: "50",
		Bytecode: "0x6080", FromPrivateKey: testKey,
	}, chain.Endpoint{NodeURL: url})
	require.ErrorIs(t, err, connerr.ErrInvalidInput, "totalCap below supply")
	assert.Empty(t, data)

	data, err = b.Build(testContext(t), &chain.Request{
		Name: "Token", Symbol: "TKN", Digits: &digits, Supply: "100",
		Bytecode: "6080", FromPrivateKey: testKey,
	}, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)

	tx, _ := decodeSigned(t, data)
	assert.Nil(t, tx.To(), "deploys have no recipient")
	assert.Equal(t, []byte{0x60, 0x80}, tx.Data()[:2])
}

func TestNFTMint_Cashback(t *testing.T) {
	t.Parallel()

	_, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetNFT, chain.Mint)

	req := &chain.Request{
		To:              testRecipient,
		TokenID:         "1",
		URL:             "ipfs://meta",
		ContractAddress: testToken,
		FromPrivateKey:  testKey,
	}
	data, err := b.Build(testContext(t), req, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)
	tx, _ := decodeSigned(t, data)
	assert.Equal(t, contract.StandardMethod(contract.ERC721, "mintWithTokenURI").ID, tx.Data()[:4])

	req.AuthorAddresses = []string{testRecipient}
	req.CashbackValues = []string{"0.5"}
	data, err = b.Build(testContext(t), req, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)
	tx, _ = decodeSigned(t, data)
	assert.Equal(t, contract.StandardMethod(contract.ERC721, "mintWithCashback").ID, tx.Data()[:4])

	req.CashbackValues = nil
	_, err = b.Build(testContext(t), req, chain.Endpoint{NodeURL: url})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
}

func TestNFTMintBatch_LengthMismatch(t *testing.T) {
	t.Parallel()

	_, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetNFT, chain.MintBatch)

	_, err := b.Build(testContext(t), &chain.Request{
		Recipients:      []string{testRecipient, testRecipient},
		TokenIDs:        []string{"1"},
		URLs:            []string{"a", "b"},
		ContractAddress: testToken,
		FromPrivateKey:  testKey,
	}, chain.Endpoint{NodeURL: url})
	require.ErrorIs(t, err, connerr.ErrInvalidInput)
	assert.Equal(t, "tokenIds", connerr.Details(err)["field"])
}

func TestMultiTokenTransfer(t *testing.T) {
	t.Parallel()

	_, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetMultiToken, chain.Transfer)

	t.Run("kms path needs a from address", func(t *testing.T) {
		t.Parallel()
		_, err := b.Build(testContext(t), &chain.Request{
			To: testRecipient, TokenID: "1", Amount: "3", ContractAddress: testToken, SignatureID: "sig",
		}, chain.Endpoint{NodeURL: url})
		require.ErrorIs(t, err, connerr.ErrInvalidInput)
		assert.Equal(t, "from", connerr.Details(err)["field"])
	})

	t.Run("signed", func(t *testing.T) {
		t.Parallel()
		data, err := b.Build(testContext(t), &chain.Request{
			To: testRecipient, TokenID: "1", Amount: "3", ContractAddress: testToken, FromPrivateKey: testKey,
		}, chain.Endpoint{NodeURL: url})
		require.NoError(t, err)

		tx, from := decodeSigned(t, data)
		method := contract.StandardMethod(contract.ERC1155, "safeTransferFrom")
		assert.Equal(t, method.ID, tx.Data()[:4])

		args, err := method.Inputs.Unpack(tx.Data()[4:])
		require.NoError(t, err)
		assert.Equal(t, from, args[0])
		assert.Equal(t, common.HexToAddress(testRecipient), args[1])
		assert.Equal(t, "3", args[3].(*big.Int).String())
	})
}

func TestInvokeContract(t *testing.T) {
	t.Parallel()

	_, url := defaultNode(t, nil)
	n := newNetwork(t, chain.ETH)
	b := builderFor(t, n, chain.AssetNative, chain.InvokeContract)

	data, err := b.Build(testContext(t), &chain.Request{
		ContractAddress: testToken,
		MethodName:      "approve",
		MethodABI:       json.RawMessage(`{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}`),
		Params:          []any{testRecipient, "1000"},
		FromPrivateKey:  testKey,
	}, chain.Endpoint{NodeURL: url})
	require.NoError(t, err)

	tx, _ := decodeSigned(t, data)
	assert.Equal(t, contract.Selector("approve(address,uint256)"), tx.Data()[:4])
}

func TestRoutes_Complete(t *testing.T) {
	t.Parallel()

	n := newNetwork(t, chain.XDC)
	routes := n.Routes()

	counts := map[chain.Asset]int{
		chain.AssetNative:     2,
		chain.AssetERC20:      5,
		chain.AssetNFT:        7,
		chain.AssetMultiToken: 8,
	}
	for asset, want := range counts {
		reg := chain.NewRegistry(asset, routes[asset]...)
		assert.Len(t, reg.Routes(), want, asset)
		for _, r := range reg.Routes() {
			assert.Equal(t, chain.XDC, r.Chain)
		}
	}
}
