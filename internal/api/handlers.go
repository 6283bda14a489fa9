package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

//nolint:gochecknoinits // Token amounts and IDs exceed float64 precision
func init() {
	binding.EnableDecoderUseNumber = true
}

type broadcastBody struct {
	TxData      string `json:"txData" binding:"required"`
	SignatureID string `json:"signatureId"`
}

type readBody struct {
	ContractAddress string          `json:"contractAddress" binding:"required"`
	Method          string          `json:"method" binding:"required"`
	ABI             json.RawMessage `json:"abi"`
	Args            []any           `json:"args"`
}

type batchBody struct {
	ContractAddress string   `json:"contractAddress" binding:"required"`
	Addresses       []string `json:"addresses" binding:"required,min=1"`
	TokenIDs        []string `json:"tokenIds" binding:"required,min=1"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func (h *handlers) listChains(c *gin.Context) {
	c.JSON(http.StatusOK, h.chains)
}

func (h *handlers) submit(c *gin.Context) {
	asset, ok := chain.ParseAsset(c.Param("asset"))
	submitter := h.submitters[asset]
	if !ok || submitter == nil {
		abort(c, chain.InvalidField("asset", "unknown asset type "+c.Param("asset")))
		return
	}
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	op, err := chain.ParseOperation(c.Param("operation"))
	if err != nil {
		abort(c, err)
		return
	}

	var req chain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, bindFailed(err))
		return
	}
	result, err := submitter.PrepareAndSubmit(c.Request.Context(), id, op, &req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) broadcast(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	var body broadcastBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, bindFailed(err))
		return
	}
	submitter := h.submitters[chain.AssetNative]
	if submitter == nil {
		abort(c, connerr.UnsupportedChain(string(id), string(chain.Broadcast)))
		return
	}
	result, err := submitter.Broadcast(c.Request.Context(), id, chain.TransactionData(body.TxData), body.SignatureID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) block(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	block, err := h.reader.Block(c.Request.Context(), id, c.Param("hashOrHeight"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (h *handlers) transaction(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	tx, err := h.reader.Transaction(c.Request.Context(), id, c.Param("txId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *handlers) readContract(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	var body readBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, bindFailed(err))
		return
	}
	call := chain.ContractCall{
		Contract: body.ContractAddress,
		Method:   body.Method,
		ABI:      abiText(body.ABI),
		Args:     body.Args,
	}
	out, err := h.reader.ReadContract(c.Request.Context(), id, call)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: out})
}

func (h *handlers) contractAddress(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	addr, err := h.reader.ContractAddress(c.Request.Context(), id, c.Param("txId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contractAddress": addr})
}

func (h *handlers) erc20Balance(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	bal, err := h.reader.ERC20Balance(c.Request.Context(), id, c.Param("contractAddress"), c.Param("address"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (h *handlers) nftMetadata(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	uri, err := h.reader.NFTMetadata(c.Request.Context(), id, c.Param("contractAddress"), c.Param("tokenId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: uri})
}

func (h *handlers) nftRoyalty(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	royalty, err := h.reader.NFTRoyalty(c.Request.Context(), id, c.Param("contractAddress"), c.Param("tokenId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, royalty)
}

func (h *handlers) nftTokensOfOwner(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	ids, err := h.reader.NFTTokensOfOwner(c.Request.Context(), id, c.Param("contractAddress"), c.Param("address"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: ids})
}

func (h *handlers) multiTokenMetadata(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	uri, err := h.reader.MultiTokenMetadata(c.Request.Context(), id, c.Param("contractAddress"), c.Param("tokenId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: uri})
}

func (h *handlers) multiTokenBalance(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	bal, err := h.reader.MultiTokenBalance(c.Request.Context(), id, c.Param("contractAddress"), c.Param("address"), c.Param("tokenId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: bal})
}

func (h *handlers) multiTokenBalanceBatch(c *gin.Context) {
	id, err := chain.ParseID(c.Param("chain"))
	if err != nil {
		abort(c, err)
		return
	}
	var body batchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, bindFailed(err))
		return
	}
	balances, err := h.reader.MultiTokenBalanceBatch(c.Request.Context(), id, body.ContractAddress, body.Addresses, body.TokenIDs)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: balances})
}

// abiText accepts the ABI either as a JSON string or inline JSON.
func abiText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
