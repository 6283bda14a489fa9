package query

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/connector/internal/chain"
	connerr "github.com/mrz1836/connector/pkg/errors"
)

// TokenBalance is an ERC-20 balance in raw units and scaled by the token's
// decimals.
type TokenBalance struct {
	Raw      string          `json:"raw"`
	Balance  decimal.Decimal `json:"balance"`
	Decimals int             `json:"decimals"`
}

// Royalty lists the cashback recipients of an NFT and their values in the
// chain's native coin.
type Royalty struct {
	Addresses []string          `json:"addresses"`
	Values    []decimal.Decimal `json:"values"`
}

// ERC20Balance returns the token balance of an address.
func (s *Service) ERC20Balance(ctx context.Context, id chain.ID, contractAddress, address string) (*TokenBalance, error) {
	if err := required("address", address); err != nil {
		return nil, err
	}

	var raw, digits any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		raw, err = s.call(gctx, id, contractAddress, "balanceOf", address)
		return err
	})
	g.Go(func() (err error) {
		digits, err = s.call(gctx, id, contractAddress, "decimals")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	amount, err := toBigInt(raw)
	if err != nil {
		return nil, s.decodeFailed(id, contractAddress, "balanceOf", err)
	}
	d, err := toBigInt(digits)
	if err != nil || !d.IsInt64() {
		return nil, s.decodeFailed(id, contractAddress, "decimals", fmt.Errorf("unexpected decimals %v", digits))
	}
	dec := int(d.Int64())
	return &TokenBalance{
		Raw:      amount.String(),
		Balance:  decimal.NewFromBigInt(amount, int32(-dec)),
		Decimals: dec,
	}, nil
}

// NFTMetadata returns the token URI of an NFT.
func (s *Service) NFTMetadata(ctx context.Context, id chain.ID, contractAddress, tokenID string) (string, error) {
	if err := required("tokenId", tokenID); err != nil {
		return "", err
	}
	out, err := s.call(ctx, id, contractAddress, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return text(out), nil
}

// NFTRoyalty returns the cashback settings of an NFT. Values are scaled by
// the native coin decimals of the chain.
func (s *Service) NFTRoyalty(ctx context.Context, id chain.ID, contractAddress, tokenID string) (*Royalty, error) {
	if err := required("tokenId", tokenID); err != nil {
		return nil, err
	}

	var recipients, values any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		recipients, err = s.call(gctx, id, contractAddress, "tokenCashbackRecipients", tokenID)
		return err
	})
	g.Go(func() (err error) {
		values, err = s.call(gctx, id, contractAddress, "tokenCashbackValues", tokenID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	royalty := &Royalty{Addresses: []string{}, Values: []decimal.Decimal{}}
	for _, a := range list(recipients) {
		royalty.Addresses = append(royalty.Addresses, text(a))
	}
	exp := int32(-id.NativeDecimals())
	for _, v := range list(values) {
		n, err := toBigInt(v)
		if err != nil {
			return nil, s.decodeFailed(id, contractAddress, "tokenCashbackValues", err)
		}
		royalty.Values = append(royalty.Values, decimal.NewFromBigInt(n, exp))
	}
	return royalty, nil
}

// NFTTokensOfOwner returns the token IDs held by an address.
func (s *Service) NFTTokensOfOwner(ctx context.Context, id chain.ID, contractAddress, owner string) ([]string, error) {
	if err := required("address", owner); err != nil {
		return nil, err
	}
	out, err := s.call(ctx, id, contractAddress, "tokensOfOwner", owner)
	if err != nil {
		return nil, err
	}
	return texts(out), nil
}

// MultiTokenMetadata returns the URI of a multi token with the {id}
// placeholder replaced by the token ID.
func (s *Service) MultiTokenMetadata(ctx context.Context, id chain.ID, contractAddress, tokenID string) (string, error) {
	if err := required("tokenId", tokenID); err != nil {
		return "", err
	}
	out, err := s.call(ctx, id, contractAddress, "uri", tokenID)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(text(out), "{id}", tokenID), nil
}

// MultiTokenBalance returns the balance of one token ID held by an address.
func (s *Service) MultiTokenBalance(ctx context.Context, id chain.ID, contractAddress, address, tokenID string) (string, error) {
	if err := required("address", address); err != nil {
		return "", err
	}
	if err := required("tokenId", tokenID); err != nil {
		return "", err
	}
	out, err := s.call(ctx, id, contractAddress, "balanceOf", address, tokenID)
	if err != nil {
		return "", err
	}
	return text(out), nil
}

// MultiTokenBalanceBatch returns the balances of (address, token ID) pairs.
func (s *Service) MultiTokenBalanceBatch(ctx context.Context, id chain.ID, contractAddress string, addresses, tokenIDs []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, chain.MissingField("address")
	}
	if err := chain.SameLength("tokenId", len(addresses), len(tokenIDs)); err != nil {
		return nil, err
	}
	out, err := s.call(ctx, id, contractAddress, "balanceOfBatch", toAny(addresses), toAny(tokenIDs))
	if err != nil {
		return nil, err
	}
	return texts(out), nil
}

// call reads a method of the standard token interfaces.
func (s *Service) call(ctx context.Context, id chain.ID, contractAddress, method string, args ...any) (any, error) {
	return s.ReadContract(ctx, id, chain.ContractCall{
		Contract: contractAddress,
		Method:   method,
		Args:     args,
	})
}

func (s *Service) decodeFailed(id chain.ID, contractAddress, method string, err error) error {
	return connerr.ContractCallFailed(string(id), contractAddress, method, err)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return chain.MissingField(field)
	}
	return nil
}

// toBigInt reads an integer result. Wide integers arrive as decimal strings.
func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case string:
		n, ok := new(big.Int).SetString(x, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
		return n, nil
	case uint8:
		return big.NewInt(int64(x)), nil
	case uint16:
		return big.NewInt(int64(x)), nil
	case uint32:
		return big.NewInt(int64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case int64:
		return big.NewInt(x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case *big.Int:
		return x, nil
	default:
		return nil, fmt.Errorf("unexpected integer type %T", v)
	}
}

func list(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func texts(v any) []string {
	items := list(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, text(item))
	}
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
