package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
	ErrInvalidCurrency     = errors.New("bank: currency required")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
)

// BalanceStore persists per currency balances.
type BalanceStore interface {
	BalanceGet(currency string, account [20]byte) (*uint256.Int, error)
	BalancePut(currency string, account [20]byte, amount *uint256.Int) error
}

// InsufficientBalanceError reports a debit larger than the available balance.
type InsufficientBalanceError struct {
	Currency  string
	Account   [20]byte
	Available *uint256.Int
	Requested *uint256.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("bank: insufficient %s balance for %s: have %s, need %s",
		e.Currency, FormatAccount(e.Account), e.Available.Dec(), e.Requested.Dec())
}

// Is lets errors.Is match the sentinel.
func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// InsufficientBalance marks the error as a balance shortfall for callers that
// do not import this package.
func (e *InsufficientBalanceError) InsufficientBalance() bool { return true }

// Ledger is a multi currency balance book over a BalanceStore.
type Ledger struct {
	store BalanceStore
}

// NewLedger wraps the supplied store.
func NewLedger(store BalanceStore) *Ledger { return &Ledger{store: store} }

// BalanceOf returns the balance of account in currency.
func (l *Ledger) BalanceOf(currency string, account [20]byte) (*uint256.Int, error) {
	symbol, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	balance, err := l.store.BalanceGet(symbol, account)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return new(uint256.Int), nil
	}
	return balance, nil
}

// Transfer moves amount from one account to another. Zero amounts are a no-op.
func (l *Ledger) Transfer(currency string, from, to [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	symbol, err := normalizeCurrency(currency)
	if err != nil {
		return err
	}
	if err := l.debit(symbol, from, amount); err != nil {
		return err
	}
	return l.credit(symbol, to, amount)
}

// Mint credits newly issued units to an account.
func (l *Ledger) Mint(currency string, to [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	symbol, err := normalizeCurrency(currency)
	if err != nil {
		return err
	}
	return l.credit(symbol, to, amount)
}

// Burn destroys units held by an account.
func (l *Ledger) Burn(currency string, from [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	symbol, err := normalizeCurrency(currency)
	if err != nil {
		return err
	}
	return l.debit(symbol, from, amount)
}

func (l *Ledger) debit(currency string, account [20]byte, amount *uint256.Int) error {
	balance, err := l.BalanceOf(currency, account)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return &InsufficientBalanceError{
			Currency:  currency,
			Account:   account,
			Available: balance,
			Requested: amount.Clone(),
		}
	}
	return l.store.BalancePut(currency, account, new(uint256.Int).Sub(balance, amount))
}

func (l *Ledger) credit(currency string, account [20]byte, amount *uint256.Int) error {
	balance, err := l.BalanceOf(currency, account)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	return l.store.BalancePut(currency, account, next)
}

func normalizeCurrency(currency string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(currency))
	if symbol == "" {
		return "", ErrInvalidCurrency
	}
	return symbol, nil
}
