package devnet

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ClientVersion is reported by web3_clientVersion.
const ClientVersion = "dapp-e2e-devnet/1.0.0"

// NetAPI serves net_*. Wallets call net_version when a network is added.
type NetAPI struct {
	ledger *Ledger
}

func (api *NetAPI) Version() string {
	return strconv.FormatUint(api.ledger.ChainID(), 10)
}

func (api *NetAPI) Listening() bool { return true }

func (api *NetAPI) PeerCount() hexutil.Uint { return 0 }

// Web3API serves web3_*.
type Web3API struct{}

func (Web3API) ClientVersion() string { return ClientVersion }

func (Web3API) Sha3(input hexutil.Bytes) hexutil.Bytes {
	return crypto.Keccak256(input)
}
