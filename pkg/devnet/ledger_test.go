package devnet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/dapp-e2e/pkg/chain"
)

var (
	alice      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob        = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tokenAddr  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	collection = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

func TestLedger_Transfer(t *testing.T) {
	l := NewLedger(31337)
	l.SetBalance(alice, big.NewInt(1000))

	hash := common.HexToHash("0x01")
	receipt, err := l.Transfer(hash, alice, bob, big.NewInt(400))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, uint64(1), receipt.BlockNumber.Uint64())
	assert.Equal(t, big.NewInt(600), l.Balance(alice))
	assert.Equal(t, big.NewInt(400), l.Balance(bob))
	assert.Equal(t, uint64(1), l.Nonce(alice))

	rec, ok := l.Transaction(hash)
	require.True(t, ok)
	assert.Equal(t, alice, rec.From)
	assert.Equal(t, &bob, rec.To)
}

func TestLedger_TransferInsufficientFunds(t *testing.T) {
	l := NewLedger(31337)
	l.SetBalance(alice, big.NewInt(10))

	_, err := l.Transfer(common.HexToHash("0x01"), alice, bob, big.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(0), l.Head(), "rejected transfers do not mine")
}

func TestLedger_TransferToken(t *testing.T) {
	l := NewLedger(31337)
	l.RegisterToken(tokenAddr, "USDC", 6)
	require.NoError(t, l.SetTokenBalance(tokenAddr, alice, big.NewInt(5_000_000)))

	receipt, err := l.TransferToken(common.HexToHash("0x02"), tokenAddr, alice, bob, big.NewInt(1_250_000), nil)
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, chain.TransferTopic, receipt.Logs[0].Topics[0])
	assert.Len(t, receipt.Logs[0].Topics, 3)

	bal, err := l.TokenBalance(tokenAddr, bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_250_000), bal)

	_, err = l.TokenBalance(collection, bob)
	assert.ErrorIs(t, err, ErrUnknownContract)
}

func TestLedger_MintNFT(t *testing.T) {
	l := NewLedger(31337)
	l.RegisterCollection(collection)

	r1, id1, err := l.MintNFT(common.Hash{}, collection, alice, alice, nil)
	require.NoError(t, err)
	r2, id2, err := l.MintNFT(common.Hash{}, collection, alice, bob, nil)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1), id1)
	assert.Equal(t, big.NewInt(2), id2)
	assert.NotEqual(t, r1.TxHash, r2.TxHash)

	assert.Equal(t, []*big.Int{big.NewInt(2)}, chain.MintedTokenIDs(r2, collection))

	owner, err := l.OwnerOf(collection, id2)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)

	_, err = l.OwnerOf(collection, big.NewInt(99))
	assert.ErrorIs(t, err, ErrNonexistentToken)
}

func TestLedger_Mine(t *testing.T) {
	l := NewLedger(1)
	assert.Equal(t, uint64(3), l.Mine(3))
	assert.Equal(t, uint64(3), l.Head())
	assert.NotEqual(t, BlockHash(1, 2), BlockHash(1, 3))
}

func TestLedger_ApplyRejectsReplay(t *testing.T) {
	l := NewLedger(31337)
	l.SetBalance(alice, big.NewInt(1000))

	send := func(hash common.Hash, nonce uint64) error {
		return l.Apply(Signed{Hash: hash, From: alice, Nonce: nonce}, func() error {
			_, err := l.transfer(hash, alice, bob, big.NewInt(100))
			return err
		})
	}

	first := common.HexToHash("0x0a")
	require.NoError(t, send(first, 0))

	err := send(first, 0)
	assert.ErrorIs(t, err, ErrAlreadyKnown)

	err = send(common.HexToHash("0x0b"), 0)
	assert.ErrorIs(t, err, ErrNonceTooLow)

	err = send(common.HexToHash("0x0c"), 5)
	assert.ErrorIs(t, err, ErrNonceTooHigh)

	assert.Equal(t, big.NewInt(900), l.Balance(alice))
	assert.Equal(t, big.NewInt(100), l.Balance(bob))
	assert.Equal(t, uint64(1), l.Nonce(alice))
	assert.Equal(t, uint64(1), l.Head())

	require.NoError(t, send(common.HexToHash("0x0d"), 1))
	assert.Equal(t, uint64(2), l.Nonce(alice))
}

func TestLedger_ApplyFailureKeepsNonce(t *testing.T) {
	l := NewLedger(31337)
	hash := common.HexToHash("0x0e")

	err := l.Apply(Signed{Hash: hash, From: alice}, func() error {
		_, err := l.transfer(hash, alice, bob, big.NewInt(1))
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(0), l.Nonce(alice))

	_, ok := l.Transaction(hash)
	assert.False(t, ok)
}
