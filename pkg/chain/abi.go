package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const erc721ABIJSON = `[
	{"type":"function","name":"ownerOf","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},
	           {"name":"to","type":"address","indexed":true},
	           {"name":"tokenId","type":"uint256","indexed":true}]}
]`

var (
	// ERC20ABI is the balanceOf fragment of ERC-20.
	ERC20ABI = mustParseABI(erc20ABIJSON)
	// ERC721ABI is the ownerOf and Transfer fragment of ERC-721.
	ERC721ABI = mustParseABI(erc721ABIJSON)

	// TransferTopic is keccak256("Transfer(address,address,uint256)").
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
