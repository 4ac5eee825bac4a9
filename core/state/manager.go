package state

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"farmchain/storage"
)

// Manager is a buffered read/write view over the key-value database. Reads
// see the manager's own uncommitted writes; nothing reaches the database
// until Commit.
type Manager struct {
	kv *overlay
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{kv: newOverlay(db)}
}

var balancePrefix = []byte("balance:")

func balanceKey(addr []byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// BalanceGet returns the stored balance for the account, or nil when unset.
func (m *Manager) BalanceGet(currency string, account [20]byte) (*uint256.Int, error) {
	symbol := strings.ToUpper(strings.TrimSpace(currency))
	data, err := m.kv.get(balanceKey(account[:], symbol))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var stored big.Int
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, errors.Wrapf(err, "decode %s balance", symbol)
	}
	return toAmount(&stored)
}

// BalancePut stores the balance for the account. Zero balances are removed.
func (m *Manager) BalancePut(currency string, account [20]byte, amount *uint256.Int) error {
	symbol := strings.ToUpper(strings.TrimSpace(currency))
	key := balanceKey(account[:], symbol)
	if amount == nil || amount.IsZero() {
		m.kv.remove(key)
		return nil
	}
	encoded, err := rlp.EncodeToBytes(amount.ToBig())
	if err != nil {
		return errors.Wrapf(err, "encode %s balance", symbol)
	}
	m.kv.put(key, encoded)
	return nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.kv.put(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.kv.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.kv.remove(kvKey(key))
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.kvByteList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVRemove drops value from the list stored under key. The key is deleted
// once the list is empty.
func (m *Manager) KVRemove(key []byte, value []byte) error {
	list, err := m.kvByteList(key)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, existing := range list {
		if !bytes.Equal(existing, value) {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, filtered)
}

func (m *Manager) kvByteList(key []byte) ([][]byte, error) {
	var list [][]byte
	if err := m.KVGetList(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.kv.get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// Commit writes every buffered change to the database in one atomic batch.
func (m *Manager) Commit() error {
	if !m.kv.dirty() {
		return nil
	}
	if err := m.kv.db.Write(m.kv.batch()); err != nil {
		return errors.Wrap(err, "commit state batch")
	}
	m.kv.reset()
	return nil
}

// Discard drops every buffered change.
func (m *Manager) Discard() { m.kv.reset() }

func toAmount(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("state: negative amount %s", v)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("state: amount %s exceeds 256 bits", v)
	}
	return out, nil
}

func fromAmount(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
