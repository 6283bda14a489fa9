package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/chain/contract"
)

//nolint:gochecknoglobals // Fixed ABI methods
var (
	nftSafeTransferFromFn     = contract.StandardMethod(contract.ERC721, "safeTransferFrom")
	nftMintWithTokenURIFn     = contract.StandardMethod(contract.ERC721, "mintWithTokenURI")
	nftMintWithCashbackFn     = contract.StandardMethod(contract.ERC721, "mintWithCashback")
	nftMintMultipleFn         = contract.StandardMethod(contract.ERC721, "mintMultiple")
	nftMintMultipleCashbackFn = contract.StandardMethod(contract.ERC721, "mintMultipleCashback")
	nftBurnFn                 = contract.StandardMethod(contract.ERC721, "burn")
	nftUpdateCashbackFn       = contract.StandardMethod(contract.ERC721, "updateCashbackForAuthor")
)

// nftCall resolves the sender and the NFT contract shared by every NFT operation.
func (n *Network) nftCall(req *chain.Request) (*sender, common.Address, error) {
	s, err := n.sender(req)
	if err != nil {
		return nil, common.Address{}, err
	}
	token, err := hexAddress(n.codec, "contractAddress", req.ContractAddress)
	if err != nil {
		return nil, common.Address{}, err
	}
	return s, token, nil
}

// nftTransfer moves a token. The optional amount pays the author cashback
// of royalty-enabled tokens.
func (n *Network) nftTransfer(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.nftCall(req)
	if err != nil {
		return "", err
	}
	from, err := s.requireFrom()
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	value, err := optionalAmount(req.Amount, n.id.NativeDecimals())
	if err != nil {
		return "", err
	}

	data, err := nftSafeTransferFromFn.Pack(from, to, tokenID)
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &token, value: value, data: data})
}

// nftMint mints one token, with author cashback when authorAddresses is set.
func (n *Network) nftMint(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.nftCall(req)
	if err != nil {
		return "", err
	}
	to, err := hexAddress(n.codec, "to", req.To)
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

	var data []byte
	if len(req.AuthorAddresses) > 0 {
		authors, values, cbErr := n.cashback(req.AuthorAddresses, req.CashbackValues)
		if cbErr != nil {
			return "", cbErr
		}
		data, err = nftMintWithCashbackFn.Pack(to, tokenID, req.URL, authors, values)
	} else {
		data, err = nftMintWithTokenURIFn.Pack(to, tokenID, req.URL)
	}
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &token, data: data})
}

// nftMintBatch mints several tokens in one transaction.
func (n *Network) nftMintBatch(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.nftCall(req)
	if err != nil {
		return "", err
	}
	if len(req.Recipients) == 0 {
		return "", chain.MissingField("recipients")
	}
	recipients, err := hexAddresses(n.codec, "recipients", req.Recipients)
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

	var data []byte
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
			if authors[i], values[i], err = n.cashback(req.BatchAuthorAddresses[i], req.BatchCashbackValues[i]); err != nil {
				return "", err
			}
		}
		data, err = nftMintMultipleCashbackFn.Pack(recipients, tokenIDs, req.URLs, authors, values)
	} else {
		data, err = nftMintMultipleFn.Pack(recipients, tokenIDs, req.URLs)
	}
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &token, data: data})
}

func (n *Network) nftBurn(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.nftCall(req)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	data, err := nftBurnFn.Pack(tokenID)
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &token, data: data})
}

// nftUpdateCashback changes the sender's cashback value on a token.
func (n *Network) nftUpdateCashback(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, token, err := n.nftCall(req)
	if err != nil {
		return "", err
	}
	tokenID, err := chain.ParseTokenID("tokenId", req.TokenID)
	if err != nil {
		return "", err
	}
	value, err := amount("cashbackValue", req.CashbackValue, n.id.NativeDecimals())
	if err != nil {
		return "", err
	}
	data, err := nftUpdateCashbackFn.Pack(tokenID, value)
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{to: &token, data: data})
}

// nftDeploy deploys the caller's ERC-721 bytecode with (name, symbol).
func (n *Network) nftDeploy(ctx context.Context, req *chain.Request, target chain.Endpoint) (chain.TransactionData, error) {
	s, err := n.sender(req)
	if err != nil {
		return "", err
	}
	bytecode, err := deployBytecode(req)
	if err != nil {
		return "", err
	}
	if req.Name == "" {
		return "", chain.MissingField("name")
	}
	if req.Symbol == "" {
		return "", chain.MissingField("symbol")
	}
	data, err := contract.PackDeploy(contract.MustLookup(contract.ERC721), bytecode, req.Name, req.Symbol)
	if err != nil {
		return "", err
	}
	return n.build(ctx, req, target, s, txCall{data: data})
}

// cashback converts author addresses and their native-coin cashback values.
func (n *Network) cashback(authors, values []string) ([]common.Address, []*big.Int, error) {
	if err := chain.SameLength("cashbackValues", len(authors), len(values)); err != nil {
		return nil, nil, err
	}
	addrs, err := hexAddresses(n.codec, "authorAddresses", authors)
	if err != nil {
		return nil, nil, err
	}
	scaled, err := chain.ToBaseUnitsList(values, n.id.NativeDecimals())
	if err != nil {
		return nil, nil, err
	}
	return addrs, scaled, nil
}
