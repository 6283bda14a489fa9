package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Standard names a well-known contract interface.
type Standard string

// Supported standard interfaces.
const (
	ERC20   Standard = "erc20"
	ERC721  Standard = "erc721"
	ERC1155 Standard = "erc1155"
)

// The deployable token contracts expose the OpenZeppelin interfaces plus the
// cashback (royalty) extensions of the ERC-721 template.
const (
	erc20ABI = `[
{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"name_","type":"string"},{"name":"symbol_","type":"string"},{"name":"receiver","type":"address"},{"name":"digits","type":"uint8"},{"name":"totalCap","type":"uint256"},{"name":"supply","type":"uint256"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"cap","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]}
]`

	erc721ABI = `[
{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"name_","type":"string"},{"name":"symbol_","type":"string"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"tokensOfOwner","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"tokenCashbackValues","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"tokenCashbackRecipients","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
{"type":"function","name":"safeTransferFrom","stateMutability":"payable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"mintWithTokenURI","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"uri","type":"string"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"mintWithCashback","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"uri","type":"string"},{"name":"authorAddresses","type":"address[]"},{"name":"cashbackValues","type":"uint256[]"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"mintMultiple","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address[]"},{"name":"tokenId","type":"uint256[]"},{"name":"uri","type":"string[]"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"mintMultipleCashback","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address[]"},{"name":"tokenId","type":"uint256[]"},{"name":"uri","type":"string[]"},{"name":"authorAddresses","type":"address[][]"},{"name":"cashbackValues","type":"uint256[][]"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"updateCashbackForAuthor","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"cashbackValue","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

	erc1155ABI = `[
{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"uri_","type":"string"}]},
{"type":"function","name":"uri","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOfBatch","stateMutability":"view","inputs":[{"name":"accounts","type":"address[]"},{"name":"ids","type":"uint256[]"}],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
{"type":"function","name":"safeBatchTransferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"ids","type":"uint256[]"},{"name":"amounts","type":"uint256[]"},{"name":"data","type":"bytes"}],"outputs":[]},
{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
{"type":"function","name":"mintBatch","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"ids","type":"uint256[]"},{"name":"amounts","type":"uint256[]"},{"name":"data","type":"bytes"}],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"},{"name":"value","type":"uint256"}],"outputs":[]},
{"type":"function","name":"burnBatch","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"ids","type":"uint256[]"},{"name":"values","type":"uint256[]"}],"outputs":[]}
]`
)

//nolint:gochecknoglobals // Parsed once, read-only afterwards
var standards = map[Standard]*abi.ABI{
	ERC20:   mustParse(erc20ABI),
	ERC721:  mustParse(erc721ABI),
	ERC1155: mustParse(erc1155ABI),
}

func mustParse(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contract: invalid built-in ABI: " + err.Error())
	}
	return &parsed
}

// Lookup returns the parsed ABI of a standard interface.
func Lookup(s Standard) (*abi.ABI, bool) {
	a, ok := standards[s]
	return a, ok
}

// MustLookup returns the parsed ABI of a standard interface and panics when
// the standard is unknown.
func MustLookup(s Standard) *abi.ABI {
	a, ok := standards[s]
	if !ok {
		panic("contract: unknown standard " + string(s))
	}
	return a
}
