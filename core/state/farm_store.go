package state

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"farmchain/native/bank"
	"farmchain/native/farming"
	"farmchain/storage"
)

// FarmStore hands out farm transactions over a database. Only one
// transaction is open at a time, which gives every engine operation a
// consistent, serialised view of the store.
type FarmStore struct {
	db storage.Database
	mu sync.Mutex
}

// NewFarmStore wraps the supplied database.
func NewFarmStore(db storage.Database) *FarmStore {
	return &FarmStore{db: db}
}

// Begin opens a transaction. It blocks while another transaction is open.
func (s *FarmStore) Begin() (farming.Transaction, error) {
	return s.begin()
}

func (s *FarmStore) begin() (*FarmTx, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("state: farm store not configured")
	}
	s.mu.Lock()
	manager := NewManager(s.db)
	return &FarmTx{Manager: manager, ledger: bank.NewLedger(manager), store: s}, nil
}

// Update runs fn in a transaction and commits it when fn succeeds.
func (s *FarmStore) Update(fn func(*FarmTx) error) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// View runs fn in a transaction that is always discarded.
func (s *FarmStore) View(fn func(*FarmTx) error) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Discard()
	return fn(tx)
}

// FarmTx is a farm store transaction. It embeds the state manager for record
// access and routes currency movements through a bank ledger over the same
// buffered view, so balances and farm records commit together.
type FarmTx struct {
	*Manager
	ledger *bank.Ledger
	store  *FarmStore
	closed bool
}

var _ farming.Transaction = (*FarmTx)(nil)

func (tx *FarmTx) Transfer(currency string, from, to [20]byte, amount *uint256.Int) error {
	return tx.ledger.Transfer(currency, from, to, amount)
}

func (tx *FarmTx) BalanceOf(currency string, account [20]byte) (*uint256.Int, error) {
	return tx.ledger.BalanceOf(currency, account)
}

// Mint credits an account. It is used to seed balances outside the engine.
func (tx *FarmTx) Mint(currency string, to [20]byte, amount *uint256.Int) error {
	return tx.ledger.Mint(currency, to, amount)
}

// Commit writes the transaction to the database and releases the store.
func (tx *FarmTx) Commit() error {
	if tx.closed {
		return fmt.Errorf("state: transaction already closed")
	}
	err := tx.Manager.Commit()
	tx.release()
	return err
}

// Discard drops the transaction. It is safe to call after Commit.
func (tx *FarmTx) Discard() {
	if tx.closed {
		return
	}
	tx.Manager.Discard()
	tx.release()
}

func (tx *FarmTx) release() {
	tx.closed = true
	tx.store.mu.Unlock()
}
