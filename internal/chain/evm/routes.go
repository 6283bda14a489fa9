package evm

import "github.com/mrz1836/connector/internal/chain"

// Routes returns the builders this network registers, per asset type.
func (n *Network) Routes() map[chain.Asset][]chain.Entry {
	entry := func(op chain.Operation, f chain.BuilderFunc) chain.Entry {
		return chain.Entry{Route: chain.Route{Chain: n.id, Operation: op}, Builder: f}
	}
	invoke := entry(chain.InvokeContract, n.invokeContract)

	return map[chain.Asset][]chain.Entry{
		chain.AssetNative: {
			entry(chain.Transfer, n.transferNative),
			invoke,
		},
		chain.AssetERC20: {
			entry(chain.Transfer, n.erc20Transfer),
			entry(chain.Mint, n.erc20Mint),
			entry(chain.Burn, n.erc20Burn),
			entry(chain.Deploy, n.erc20Deploy),
			invoke,
		},
		chain.AssetNFT: {
			entry(chain.Transfer, n.nftTransfer),
			entry(chain.Mint, n.nftMint),
			entry(chain.MintBatch, n.nftMintBatch),
			entry(chain.Burn, n.nftBurn),
			entry(chain.UpdateCashback, n.nftUpdateCashback),
			entry(chain.Deploy, n.nftDeploy),
			invoke,
		},
		chain.AssetMultiToken: {
			entry(chain.Transfer, n.mtTransfer),
			entry(chain.TransferBatch, n.mtTransferBatch),
			entry(chain.Mint, n.mtMint),
			entry(chain.MintBatch, n.mtMintBatch),
			entry(chain.Burn, n.mtBurn),
			entry(chain.BurnBatch, n.mtBurnBatch),
			entry(chain.Deploy, n.mtDeploy),
			invoke,
		},
	}
}
