// Package chain holds the read-only on-chain helpers used by scenario
// assertions. Every query dials a fresh RPC connection, issues its request
// and closes the connection. RPC errors are returned as the provider
// reported them.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
)

// WaitTimeout bounds WaitForTx.
const WaitTimeout = 60 * time.Second

// pollInterval is how often WaitForTx re-checks the receipt and head.
var pollInterval = time.Second

// ErrTxWaitTimeout is returned when a transaction does not reach the requested
// confirmation depth within WaitTimeout.
var ErrTxWaitTimeout = errors.New("transaction not confirmed in time")

func dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

func record(method string, err error) {
	metrics.ChainQueriesTotal.WithLabelValues(method, metrics.Outcome(err, errors.Is(err, ErrTxWaitTimeout))).Inc()
}

// GetChainID returns the chain id served at rpcURL.
func GetChainID(ctx context.Context, rpcURL string) (id *big.Int, err error) {
	defer func() { record("eth_chainId", err) }()

	client, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return client.ChainID(ctx)
}

// GetOnChainBalance returns the wei balance of address at the latest block.
func GetOnChainBalance(ctx context.Context, rpcURL, address string) (balance *big.Int, err error) {
	defer func() { record("eth_getBalance", err) }()

	client, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return client.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// GetTxReceipt returns the receipt for txHash, or nil when the transaction
// is unknown or still pending.
func GetTxReceipt(ctx context.Context, rpcURL, txHash string) (receipt *types.Receipt, err error) {
	defer func() { record("eth_getTransactionReceipt", err) }()

	client, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return receiptOrNil(ctx, client, common.HexToHash(txHash))
}

func receiptOrNil(ctx context.Context, client *ethclient.Client, hash common.Hash) (*types.Receipt, error) {
	receipt, err := client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	return receipt, err
}

// WaitForTx polls until txHash is mined with at least confirmations blocks on
// top of (and including) its own block, bounded by WaitTimeout. With zero
// confirmations the current receipt, possibly nil, is returned at once.
func WaitForTx(ctx context.Context, rpcURL, txHash string, confirmations uint64) (receipt *types.Receipt, err error) {
	defer func() { record("wait_for_tx", err) }()

	ctx, cancel := context.WithTimeout(ctx, WaitTimeout)
	defer cancel()

	client, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	hash := common.HexToHash(txHash)
	if confirmations == 0 {
		return receiptOrNil(ctx, client, hash)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err = receiptOrNil(ctx, client, hash)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if receipt != nil {
			head, err := client.BlockNumber(ctx)
			if err != nil && ctx.Err() == nil {
				return nil, err
			}
			if err == nil && head+1 >= receipt.BlockNumber.Uint64()+confirmations {
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s after %s: %v", ErrTxWaitTimeout, txHash, WaitTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetTokenBalance returns the ERC-20 balanceOf(wallet) on token.
func GetTokenBalance(ctx context.Context, rpcURL, token, wallet string) (balance *big.Int, err error) {
	defer func() { record("balanceOf", err) }()

	data, err := ERC20ABI.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	out, err := call(ctx, rpcURL, common.HexToAddress(token), data)
	if err != nil {
		return nil, err
	}

	values, err := ERC20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	return values[0].(*big.Int), nil
}

// GetNftOwner returns the ERC-721 ownerOf(tokenID) on nft.
func GetNftOwner(ctx context.Context, rpcURL, nft string, tokenID *big.Int) (owner common.Address, err error) {
	defer func() { record("ownerOf", err) }()

	data, err := ERC721ABI.Pack("ownerOf", tokenID)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack ownerOf: %w", err)
	}
	out, err := call(ctx, rpcURL, common.HexToAddress(nft), data)
	if err != nil {
		return common.Address{}, err
	}

	values, err := ERC721ABI.Unpack("ownerOf", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack ownerOf: %w", err)
	}
	return values[0].(common.Address), nil
}

func call(ctx context.Context, rpcURL string, to common.Address, data []byte) ([]byte, error) {
	client, err := dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// MintedTokenIDs returns the token ids minted by contract in receipt, read
// from ERC-721 Transfer events whose sender is the zero address.
func MintedTokenIDs(receipt *types.Receipt, contract common.Address) []*big.Int {
	if receipt == nil {
		return nil
	}
	var ids []*big.Int
	for _, log := range receipt.Logs {
		if log.Address != contract || len(log.Topics) != 4 || log.Topics[0] != TransferTopic {
			continue
		}
		if common.BytesToAddress(log.Topics[1].Bytes()) != (common.Address{}) {
			continue
		}
		ids = append(ids, new(big.Int).SetBytes(log.Topics[3].Bytes()))
	}
	return ids
}
