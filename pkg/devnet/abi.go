package devnet

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// contractABIJSON covers the ERC-20 and ERC-721 methods the devnet contracts answer
const contractABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"}],"name":"mint","outputs":[],"type":"function"},
	{"constant":false,"inputs":[],"name":"mint","outputs":[],"type":"function"}
]`

var contractABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(contractABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()
