package devnet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	// GasPriceWei is the fixed gas price reported by the devnet.
	GasPriceWei = 1_000_000_000
	gasLimit    = 30_000_000
	transferGas = 21_000
)

// EthAPI implements the eth_* JSON-RPC namespace
type EthAPI struct {
	server *Server
}

// NewEthAPI creates a new EthAPI instance
func NewEthAPI(server *Server) *EthAPI {
	return &EthAPI{server: server}
}

// ChainId returns the chain ID (EIP-155)
func (api *EthAPI) ChainId() hexutil.Uint64 {
	return hexutil.Uint64(api.server.ledger.ChainID())
}

// BlockNumber returns the latest block number
func (api *EthAPI) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(api.server.ledger.Head())
}

// GasPrice returns the current gas price
func (api *EthAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(GasPriceWei))
}

// MaxPriorityFeePerGas returns the suggested priority fee (EIP-1559)
func (api *EthAPI) MaxPriorityFeePerGas() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(GasPriceWei))
}

// EstimateGas estimates gas for a transaction
func (api *EthAPI) EstimateGas(ctx context.Context, args CallArgs, blockNrOrHash *rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	if len(args.GetData()) == 0 {
		return transferGas, nil
	}
	return hexutil.Uint64(100_000), nil
}

// GetBalance returns the native balance at the head block
func (api *EthAPI) GetBalance(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) *hexutil.Big {
	return (*hexutil.Big)(api.server.ledger.Balance(address))
}

// GetTransactionCount returns the nonce for an address
func (api *EthAPI) GetTransactionCount(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) hexutil.Uint64 {
	return hexutil.Uint64(api.server.ledger.Nonce(address))
}

// GetCode returns placeholder bytecode for registered contracts so wallets treat them as contracts
func (api *EthAPI) GetCode(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) hexutil.Bytes {
	if api.server.ledger.IsContract(address) {
		return hexutil.Bytes{0x60, 0x80}
	}
	return hexutil.Bytes{}
}

// Syncing returns false (always synced)
func (api *EthAPI) Syncing() bool {
	return false
}

// GetBlockByNumber returns a header-only view of a block
func (api *EthAPI) GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (*RPCBlock, error) {
	head := api.server.ledger.Head()
	n := head
	if number >= 0 {
		n = uint64(number)
	}
	if n > head {
		return nil, nil
	}

	var parent common.Hash
	if n > 0 {
		parent = BlockHash(api.server.ledger.ChainID(), n-1)
	}
	return &RPCBlock{
		Number:        hexutil.Uint64(n),
		Hash:          BlockHash(api.server.ledger.ChainID(), n),
		ParentHash:    parent,
		Timestamp:     hexutil.Uint64(api.server.startTime.Unix() + int64(n)),
		GasLimit:      gasLimit,
		BaseFeePerGas: (*hexutil.Big)(big.NewInt(GasPriceWei)),
		Transactions:  []common.Hash{},
	}, nil
}

// SendRawTransaction applies a signed native transfer, ERC-20 transfer or
// ERC-721 mint and mines it immediately
func (api *EthAPI) SendRawTransaction(ctx context.Context, data hexutil.Bytes) (common.Hash, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(data); err != nil {
		api.server.logger.Warn("Failed to decode transaction", zap.Error(err))
		return common.Hash{}, fmt.Errorf("invalid transaction: %w", err)
	}

	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(api.server.ledger.ChainID()))
	from, err := types.Sender(signer, &tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid sender: %w", err)
	}
	if tx.To() == nil {
		return common.Hash{}, fmt.Errorf("contract deployment not supported")
	}

	hash := tx.Hash()
	to := *tx.To()
	input := tx.Data()

	ledger := api.server.ledger
	err = ledger.Apply(Signed{Hash: hash, From: from, Nonce: tx.Nonce()}, func() error {
		switch {
		case len(input) == 0:
			_, err := ledger.transfer(hash, from, to, tx.Value())
			return err
		case len(input) < 4:
			return fmt.Errorf("missing function selector")
		default:
			return api.applyCall(hash, from, to, input)
		}
	})
	if err != nil {
		api.server.logger.Warn("Transaction rejected",
			zap.String("hash", hash.Hex()),
			zap.String("from", from.Hex()),
			zap.String("to", to.Hex()),
			zap.Error(err))
		return common.Hash{}, err
	}

	api.server.logger.Info("Transaction mined",
		zap.String("hash", hash.Hex()),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("value", tx.Value().String()),
		zap.Uint64("block", api.server.ledger.Head()))
	return hash, nil
}

// applyCall runs a contract write. Callers hold the ledger lock.
func (api *EthAPI) applyCall(hash common.Hash, from, to common.Address, input []byte) error {
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return fmt.Errorf("unknown method")
	}
	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, input[4:]); err != nil {
		return fmt.Errorf("failed to decode %s args: %w", method.Name, err)
	}

	switch method.Name {
	case "transfer":
		recipient, _ := args["to"].(common.Address)
		amount, _ := args["value"].(*big.Int)
		if amount == nil {
			return fmt.Errorf("invalid 'value' in transfer")
		}
		_, err = api.server.ledger.transferToken(hash, to, from, recipient, amount, input)
	case "mint":
		recipient, ok := args["to"].(common.Address)
		if !ok {
			recipient = from
		}
		_, _, err = api.server.ledger.mintNFT(hash, to, from, recipient, input)
	case "mint0":
		_, _, err = api.server.ledger.mintNFT(hash, to, from, from, input)
	default:
		err = fmt.Errorf("unsupported method: %s", method.Name)
	}
	return err
}

// GetTransactionReceipt returns the receipt for a transaction
func (api *EthAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*RPCReceipt, error) {
	rec, ok := api.server.ledger.Transaction(hash)
	if !ok {
		return nil, nil
	}
	return newRPCReceipt(rec), nil
}

// GetTransactionByHash returns a transaction by hash
func (api *EthAPI) GetTransactionByHash(ctx context.Context, hash common.Hash) (*RPCTransaction, error) {
	rec, ok := api.server.ledger.Transaction(hash)
	if !ok {
		return nil, nil
	}

	blockHash := rec.Receipt.BlockHash
	blockNum := hexutil.Uint64(rec.Receipt.BlockNumber.Uint64())
	txIndex := hexutil.Uint(0)

	return &RPCTransaction{
		Hash:             hash,
		Nonce:            hexutil.Uint64(rec.Nonce),
		BlockHash:        &blockHash,
		BlockNumber:      &blockNum,
		TransactionIndex: &txIndex,
		From:             rec.From,
		To:               rec.To,
		Value:            (*hexutil.Big)(rec.Value),
		GasPrice:         (*hexutil.Big)(big.NewInt(GasPriceWei)),
		Gas:              hexutil.Uint64(rec.Receipt.GasUsed),
		Input:            rec.Input,
		Type:             hexutil.Uint64(rec.Receipt.Type),
		ChainID:          (*hexutil.Big)(new(big.Int).SetUint64(api.server.ledger.ChainID())),
	}, nil
}

// Call executes a read-only contract call
func (api *EthAPI) Call(ctx context.Context, args CallArgs, blockNrOrHash rpc.BlockNumberOrHash, overrides *map[common.Address]interface{}) (hexutil.Bytes, error) {
	if args.To == nil {
		return nil, fmt.Errorf("unsupported contract")
	}
	input := args.GetData()
	if len(input) < 4 {
		return nil, fmt.Errorf("missing function selector")
	}
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown method")
	}
	params := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(params, input[4:]); err != nil {
		return nil, err
	}

	ledger := api.server.ledger
	switch method.Name {
	case "balanceOf":
		account, _ := params["account"].(common.Address)
		bal, err := ledger.TokenBalance(*args.To, account)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(bal)
	case "ownerOf":
		id, _ := params["tokenId"].(*big.Int)
		owner, err := ledger.OwnerOf(*args.To, id)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(owner)
	case "decimals", "symbol":
		token, ok := ledger.Token(*args.To)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownContract, args.To.Hex())
		}
		if method.Name == "decimals" {
			return method.Outputs.Pack(token.Decimals)
		}
		return method.Outputs.Pack(token.Symbol)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method.Name)
	}
}
