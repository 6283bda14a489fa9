package tron

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
)

//nolint:gochecknoglobals // Fixed ABI methods
var (
	trc20TransferFn           = contract.StandardMethod(contract.ERC20, "transfer")
	trc20DecimalsFn           = contract.StandardMethod(contract.ERC20, "decimals")
	nftSafeTransferFromFn     = contract.StandardMethod(contract.ERC721, "safeTransferFrom")
	nftMintWithTokenURIFn     = contract.StandardMethod(contract.ERC721, "mintWithTokenURI")
	nftMintWithCashbackFn     = contract.StandardMethod(contract.ERC721, "mintWithCashback")
	nftMintMultipleFn         = contract.StandardMethod(contract.ERC721, "mintMultiple")
	nftMintMultipleCashbackFn = contract.StandardMethod(contract.ERC721, "mintMultipleCashback")
	nftBurnFn                 = contract.StandardMethod(contract.ERC721, "burn")
	nftUpdateCashbackFn       = contract.StandardMethod(contract.ERC721, "updateCashbackForAuthor")
)

// tokenCall resolves the sender and the token contract of a request.
func (n *Network) tokenCall(req *chain.Request) (*sender, common.Address, error) {
	s, err := n.sender(req)
	if err != nil {
		return nil, common.Address{}, err
	}
	token, err := n.address("contractAddress", req.ContractAddress)
	if err != nil {
		return nil, common.Address{}, err
	}
	return s, token, nil
}

// trc20Transfer transfers TRC-20 tokens, scaling the amount by the token's
// decimals (read from the contract when digits is not given).
func (n *Network) trc20Transfer(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	to, err := n.address("to", req.To)
	if err != nil {
		return "", err
	}

	decimals := 0
	if req.Digits != nil {
		decimals = *req.Digits
	} else if decimals, err = n.tokenDecimals(ctx, target.NodeURL, token); err != nil {
		return "", err
	}
	if req.Amount == "" {
		return "", chain.MissingField("amount")
	}
	value, err := chain.ToBaseUnits(req.Amount, decimals)
	if err != nil {
		return "", err
	}
	return n.trigger(ctx, req, target, s, call{contract: token, method: trc20TransferFn, args: []any{to, value}})
}

func (n *Network) tokenDecimals(ctx context.Context, nodeURL string, token common.Address) (int, error) {
	out, err := n.constantCall(ctx, nodeURL, token, trc20DecimalsFn, nil)
	if err != nil {
		return 0, fmt.Errorf("reading token decimals: %w", err)
	}
	d, ok := out.(uint8)
	if !ok {
		return 0, fmt.Errorf("reading token decimals: unexpected %T", out)
	}
	return int(d), nil
}

// nftTransfer moves a TRC-721 token; the optional amount pays cashback.
func (n *Network) nftTransfer(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	to, err := n.address("to", req.To)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	value, err := sunAmount("amount", req.Amount, false)
	if err != nil {
		return "", err
	}
	return n.trigger(ctx, req, target, s, call{
		contract:  token,
		method:    nftSafeTransferFromFn,
		args:      []any{s.owner, to, tokenID},
		callValue: value,
	})
}

// nftMint mints one token, with author cashback when authorAddresses is set.
func (n *Network) nftMint(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	to, err := n.address("to", req.To)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	if req.URL == "" {
		return "", chain.MissingField("url")
	}

	c := call{contract: token, method: nftMintWithTokenURIFn, args: []any{to, tokenID, req.URL}}
	if len(req.AuthorAddresses) > 0 {
		if err = chain.SameLength("cashbackValues", len(req.AuthorAddresses), len(req.CashbackValues)); err != nil {
			return "", err
		}
		authors, authErr := n.addresses("authorAddresses", req.AuthorAddresses)
		if authErr != nil {
			return "", authErr
		}
		values, valErr := trxValues(req.CashbackValues)
		if valErr != nil {
			return "", valErr
		}
		c.method = nftMintWithCashbackFn
		c.args = append(c.args, authors, values)
	}
	return n.trigger(ctx, req, target, s, c)
}

// nftMintBatch mints several tokens in one call.
func (n *Network) nftMintBatch(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	if len(req.Recipients) == 0 {
		return "", chain.MissingField("recipients")
	}
	recipients, err := n.addresses("recipients", req.Recipients)
	if err != nil {
		return "", err
	}
	tokenIDs, err := chain.ParseTokenIDs("tokenIds", req.TokenIDs)
	if err != nil {
		return "", err
	}
	if err = chain.SameLength("tokenIds", len(recipients), len(tokenIDs)); err != nil {
		return "", err
	}
	if err = chain.SameLength("urls", len(recipients), len(req.URLs)); err != nil {
		return "", err
	}

	c := call{contract: token, method: nftMintMultipleFn, args: []any{recipients, tokenIDs, req.URLs}}
	if len(req.BatchAuthorAddresses) > 0 {
		if err = chain.SameLength("batchAuthorAddresses", len(recipients), len(req.BatchAuthorAddresses)); err != nil {
			return "", err
		}
		if err = chain.SameLength("batchCashbackValues", len(recipients), len(req.BatchCashbackValues)); err != nil {
			return "", err
		}
		authors := make([][]common.Address, len(recipients))
		values := make([][]*big.Int, len(recipients))
		for i := range recipients {
			if err = chain.SameLength("batchCashbackValues", len(req.BatchAuthorAddresses[i]), len(req.BatchCashbackValues[i])); err != nil {
				return "", err
			}
			if authors[i], err = n.addresses("batchAuthorAddresses", req.BatchAuthorAddresses[i]); err != nil {
				return "", err
			}
			if values[i], err = trxValues(req.BatchCashbackValues[i]); err != nil {
				return "", err
			}
		}
		c.method = nftMintMultipleCashbackFn
		c.args = append(c.args, authors, values)
	}
	return n.trigger(ctx, req, target, s, c)
}

func (n *Network) nftBurn(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	return n.trigger(ctx, req, target, s, call{contract: token, method: nftBurnFn, args: []any{tokenID}})
}

// nftUpdateCashback changes the sender's cashback value, in TRX.
func (n *Network) nftUpdateCashback(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	if req.CashbackValue == "" {
		return "", chain.MissingField("cashbackValue")
	}
	value, err := chain.ToBaseUnits(req.CashbackValue, trxDecimals)
	if err != nil {
		return "", err
	}
	return n.trigger(ctx, req, target, s, call{contract: token, method: nftUpdateCashbackFn, args: []any{tokenID, value}})
}

// invokeContract calls an arbitrary method described by the caller's ABI.
func (n *Network) invokeContract(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.tokenCall(req)
	if err != nil {
		return "", err
	}
	if req.MethodName == "" {
		return "", chain.MissingField("methodName")
	}
	method, err := contract.Resolve(string(req.MethodABI), req.MethodName, len(req.Params))
	if err != nil {
		return "", err
	}
	args, err := contract.Coerce(method.Inputs, req.Params, n.codec.Hex)
	if err != nil {
		return "", err
	}
	value, err := sunAmount("amount", req.Amount, false)
	if err != nil {
		return "", err
	}
	return n.trigger(ctx, req, target, s, call{contract: token, method: method, args: args, callValue: value})
}
