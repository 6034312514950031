// Package devnet is a small in-memory Ethereum JSON-RPC endpoint used as a
// deterministic chain for local runs and for testing the chain helpers. It
// keeps native balances, ERC-20 balances, ERC-721 ownership and receipts, and
// mines one block per accepted write.
package devnet

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
	"github.com/chainsafe/dapp-e2e/pkg/chain"
)

var (
	// ErrInsufficientFunds is returned when a sender cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnknownContract is returned for calls to addresses with no registered contract.
	ErrUnknownContract = errors.New("unknown contract")
	// ErrNonexistentToken is returned by ownerOf for an unminted token id.
	ErrNonexistentToken = errors.New("ERC721: invalid token ID")
	// ErrAlreadyKnown is returned when a transaction hash was already mined.
	ErrAlreadyKnown = errors.New("already known")
	// ErrNonceTooLow and ErrNonceTooHigh are returned when a signed
	// transaction is not the sender's next one.
	ErrNonceTooLow  = errors.New("nonce too low")
	ErrNonceTooHigh = errors.New("nonce too high")
)

// Signed identifies a signed transaction submitted over RPC.
type Signed struct {
	Hash  common.Hash
	From  common.Address
	Nonce uint64
}

// Token is a registered ERC-20 contract.
type Token struct {
	Symbol   string
	Decimals uint8
	balances map[common.Address]*big.Int
}

// Collection is a registered ERC-721 contract.
type Collection struct {
	nextID *big.Int
	owners map[string]common.Address
}

// TxRecord is a mined transaction and its receipt.
type TxRecord struct {
	Receipt *types.Receipt
	From    common.Address
	To      *common.Address
	Nonce   uint64
	Value   *big.Int
	Input   []byte
}

// Ledger is the devnet state. All methods are safe for concurrent use.
type Ledger struct {
	mu sync.RWMutex

	chainID     uint64
	head        uint64
	balances    map[common.Address]*big.Int
	nonces      map[common.Address]uint64
	tokens      map[common.Address]*Token
	collections map[common.Address]*Collection
	txs         map[common.Hash]*TxRecord
}

// NewLedger returns an empty ledger at block zero.
func NewLedger(chainID uint64) *Ledger {
	return &Ledger{
		chainID:     chainID,
		balances:    make(map[common.Address]*big.Int),
		nonces:      make(map[common.Address]uint64),
		tokens:      make(map[common.Address]*Token),
		collections: make(map[common.Address]*Collection),
		txs:         make(map[common.Hash]*TxRecord),
	}
}

// ChainID returns the chain id the ledger signs receipts for.
func (l *Ledger) ChainID() uint64 {
	return l.chainID
}

// Head returns the latest block number.
func (l *Ledger) Head() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.head
}

// Mine advances the head by n empty blocks.
func (l *Ledger) Mine(n uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.head += n
	metrics.DevnetHeadBlock.Set(float64(l.head))
	return l.head
}

// SetBalance overwrites the native balance of addr.
func (l *Ledger) SetBalance(addr common.Address, wei *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] = new(big.Int).Set(wei)
}

// Balance returns the native balance of addr.
func (l *Ledger) Balance(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueOrZero(l.balances[addr])
}

// Nonce returns the number of transactions sent by addr.
func (l *Ledger) Nonce(addr common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nonces[addr]
}

// RegisterToken adds an ERC-20 contract at addr.
func (l *Ledger) RegisterToken(addr common.Address, symbol string, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tokens[addr]; ok {
		return
	}
	l.tokens[addr] = &Token{Symbol: symbol, Decimals: decimals, balances: make(map[common.Address]*big.Int)}
}

// RegisterCollection adds an ERC-721 contract at addr. Token ids start at 1.
func (l *Ledger) RegisterCollection(addr common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.collections[addr]; ok {
		return
	}
	l.collections[addr] = &Collection{nextID: big.NewInt(1), owners: make(map[string]common.Address)}
}

// Token returns the ERC-20 registered at addr.
func (l *Ledger) Token(addr common.Address) (*Token, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tokens[addr]
	return t, ok
}

// IsContract reports whether a token or collection is registered at addr.
func (l *Ledger) IsContract(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, token := l.tokens[addr]
	_, nft := l.collections[addr]
	return token || nft
}

// SetTokenBalance overwrites holder's balance on token.
func (l *Ledger) SetTokenBalance(token, holder common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContract, token.Hex())
	}
	t.balances[holder] = new(big.Int).Set(amount)
	return nil
}

// TokenBalance returns holder's balance on token.
func (l *Ledger) TokenBalance(token, holder common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, token.Hex())
	}
	return valueOrZero(t.balances[holder]), nil
}

// OwnerOf returns the owner of tokenID on collection.
func (l *Ledger) OwnerOf(collection common.Address, tokenID *big.Int) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.collections[collection]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownContract, collection.Hex())
	}
	owner, ok := c.owners[tokenID.String()]
	if !ok {
		return common.Address{}, ErrNonexistentToken
	}
	return owner, nil
}

// Transaction returns a mined transaction by hash.
func (l *Ledger) Transaction(hash common.Hash) (*TxRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.txs[hash]
	return rec, ok
}

// Apply runs op under the ledger lock once tx is known to be new and to
// carry the sender's next nonce. op must use the unlocked mutators.
func (l *Ledger) Apply(tx Signed, op func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.txs[tx.Hash]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyKnown, tx.Hash.Hex())
	}
	switch next := l.nonces[tx.From]; {
	case tx.Nonce < next:
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooLow, tx.From.Hex(), tx.Nonce, next)
	case tx.Nonce > next:
		return fmt.Errorf("%w: address %s, tx: %d state: %d", ErrNonceTooHigh, tx.From.Hex(), tx.Nonce, next)
	}
	return op()
}

// Transfer moves native value from one account to another and mines it.
func (l *Ledger) Transfer(hash common.Hash, from, to common.Address, value *big.Int) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(hash, from, to, value)
}

func (l *Ledger) transfer(hash common.Hash, from, to common.Address, value *big.Int) (*types.Receipt, error) {
	bal := valueOrZero(l.balances[from])
	if bal.Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: have %s want %s", ErrInsufficientFunds, bal, value)
	}
	l.balances[from] = new(big.Int).Sub(bal, value)
	l.balances[to] = new(big.Int).Add(valueOrZero(l.balances[to]), value)

	return l.mine(hash, from, &to, value, nil, nil), nil
}

// TransferToken moves an ERC-20 amount and mines it with a Transfer log.
func (l *Ledger) TransferToken(hash common.Hash, token, from, to common.Address, amount *big.Int, input []byte) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferToken(hash, token, from, to, amount, input)
}

func (l *Ledger) transferToken(hash common.Hash, token, from, to common.Address, amount *big.Int, input []byte) (*types.Receipt, error) {
	t, ok := l.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, token.Hex())
	}
	bal := valueOrZero(t.balances[from])
	if bal.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: have %s want %s", ErrInsufficientFunds, bal, amount)
	}
	t.balances[from] = new(big.Int).Sub(bal, amount)
	t.balances[to] = new(big.Int).Add(valueOrZero(t.balances[to]), amount)

	log := &types.Log{
		Address: token,
		Topics:  []common.Hash{chain.TransferTopic, addressTopic(from), addressTopic(to)},
		Data:    common.LeftPadBytes(amount.Bytes(), 32),
	}
	return l.mine(hash, from, &token, big.NewInt(0), input, []*types.Log{log}), nil
}

// MintNFT mints the next token id of collection to owner on behalf of
// sender. A zero hash is replaced with a synthetic one.
func (l *Ledger) MintNFT(hash common.Hash, collection, sender, owner common.Address, input []byte) (*types.Receipt, *big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mintNFT(hash, collection, sender, owner, input)
}

func (l *Ledger) mintNFT(hash common.Hash, collection, sender, owner common.Address, input []byte) (*types.Receipt, *big.Int, error) {
	c, ok := l.collections[collection]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownContract, collection.Hex())
	}
	id := new(big.Int).Set(c.nextID)
	c.nextID.Add(c.nextID, big.NewInt(1))
	c.owners[id.String()] = owner

	if hash == (common.Hash{}) {
		hash = crypto.Keccak256Hash(collection.Bytes(), owner.Bytes(), id.Bytes(), new(big.Int).SetUint64(l.head).Bytes())
	}
	log := &types.Log{
		Address: collection,
		Topics: []common.Hash{
			chain.TransferTopic,
			addressTopic(common.Address{}),
			addressTopic(owner),
			common.BigToHash(id),
		},
		Data: []byte{},
	}
	return l.mine(hash, sender, &collection, big.NewInt(0), input, []*types.Log{log}), id, nil
}

// mine records a successful transaction in a new block. Callers hold l.mu.
func (l *Ledger) mine(hash common.Hash, from common.Address, to *common.Address, value *big.Int, input []byte, logs []*types.Log) *types.Receipt {
	l.head++
	metrics.DevnetHeadBlock.Set(float64(l.head))

	blockNumber := new(big.Int).SetUint64(l.head)
	blockHash := BlockHash(l.chainID, l.head)
	if logs == nil {
		logs = []*types.Log{}
	}
	for i, log := range logs {
		log.BlockNumber = l.head
		log.BlockHash = blockHash
		log.TxHash = hash
		log.Index = uint(i)
	}

	receipt := &types.Receipt{
		Type:              types.DynamicFeeTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		Logs:              logs,
		TxHash:            hash,
		BlockHash:         blockHash,
		BlockNumber:       blockNumber,
		EffectiveGasPrice: big.NewInt(GasPriceWei),
	}
	receipt.Bloom = types.CreateBloom(receipt)

	l.txs[hash] = &TxRecord{
		Receipt: receipt,
		From:    from,
		To:      to,
		Nonce:   l.nonces[from],
		Value:   valueOrZero(value),
		Input:   input,
	}
	l.nonces[from]++
	return receipt
}

// BlockHash derives a deterministic hash for a block number.
func BlockHash(chainID, number uint64) common.Hash {
	return crypto.Keccak256Hash(
		new(big.Int).SetUint64(chainID).Bytes(),
		new(big.Int).SetUint64(number).Bytes(),
	)
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
