package tron

import "github.com/mrz1836/connector/internal/chain"

// Routes returns the builders this network registers, per asset type.
// TRON has no multi-token standard and deploys are not supported.
func (n *Network) Routes() map[chain.Asset][]chain.Entry {
	entry := func(op chain.Operation, f chain.BuilderFunc) chain.Entry {
		return chain.Entry{Route: chain.Route{Chain: chain.TRON, Operation: op}, Builder: f}
	}
	invoke := entry(chain.InvokeContract, n.invokeContract)

	return map[chain.Asset][]chain.Entry{
		chain.AssetNative: {
			entry(chain.Transfer, n.transferNative),
			invoke,
		},
		chain.AssetERC20: {
			entry(chain.Transfer, n.trc20Transfer),
			invoke,
		},
		chain.AssetNFT: {
			entry(chain.Transfer, n.nftTransfer),
			entry(chain.Mint, n.nftMint),
			entry(chain.MintBatch, n.nftMintBatch),
			entry(chain.Burn, n.nftBurn),
			entry(chain.UpdateCashback, n.nftUpdateCashback),
			invoke,
		},
	}
}
