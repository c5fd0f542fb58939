// Package storage provides the persistence layer for the ledger engine.
//
// Two components sit on top of one BadgerDB key-value store:
//
//   - BadgerStorage: the low-level KV store with transactions, batches,
//     and prefix iteration
//   - LedgerStore: snapshot persistence and the append-only event
//     journal, expressed in ledger types
//
// All writes go through Badger transactions, so a snapshot save is
// atomic: a crash mid-save leaves the previous snapshot intact.
package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

// Storage is the key-value interface the ledger store is built on.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Batch(operations []BatchOperation) error
	Update(fn func(txn Transaction) error) error
	View(fn func(txn Transaction) error) error
	Iterator(prefix []byte) Iterator
	Close() error
}

// Transaction exposes the operations available inside a storage
// transaction.
type Transaction interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
}

// Iterator walks keys sharing a prefix in ascending order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close()
}

var ErrKeyNotFound = fmt.Errorf("key not found")

// Key prefixes for the data types stored by the ledger.
const (
	AccountPrefix  = "acc:"
	SlotPrefix     = "slt:"
	MetaPrefix     = "met:"
	EventPrefix    = "evt:"
	SnapshotPrefix = "snp:"
)

// AccountKey returns the storage key of one account's state.
func AccountKey(address string) []byte {
	return []byte(AccountPrefix + address)
}

// SlotKey returns the storage key of one market slot.
func SlotKey(index int) []byte {
	return []byte(fmt.Sprintf("%s%08d", SlotPrefix, index))
}

// MetaKey returns the storage key of a named metadata field.
func MetaKey(name string) []byte {
	return []byte(MetaPrefix + name)
}

// BadgerStorage implements Storage using BadgerDB v3.
type BadgerStorage struct {
	db *badger.DB
	mu sync.RWMutex
}

// NewBadgerStorage opens (or creates) a BadgerDB store at dataDir.
func NewBadgerStorage(dataDir string) (*BadgerStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	opts := badger.DefaultOptions(dataDir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", dataDir, err)
	}

	return &BadgerStorage{db: db}, nil
}

// Close releases the underlying database. Safe to call twice.
func (bs *BadgerStorage) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.db == nil {
		return nil
	}
	err := bs.db.Close()
	bs.db = nil
	return err
}

func (bs *BadgerStorage) Get(key []byte) ([]byte, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	var value []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrKeyNotFound
	}
	return value, err
}

func (bs *BadgerStorage) Set(key, value []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (bs *BadgerStorage) Delete(key []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (bs *BadgerStorage) Has(key []byte) (bool, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	err := bs.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BatchOperation is one element of an atomic write batch.
type BatchOperation struct {
	Type  BatchOperationType
	Key   []byte
	Value []byte
}

type BatchOperationType int

const (
	BatchSet BatchOperationType = iota
	BatchDelete
)

// Batch applies all operations in a single transaction.
func (bs *BadgerStorage) Batch(operations []BatchOperation) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		for _, op := range operations {
			switch op.Type {
			case BatchSet:
				if err := txn.Set(op.Key, op.Value); err != nil {
					return err
				}
			case BatchDelete:
				if err := txn.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Update runs fn inside a write transaction.
func (bs *BadgerStorage) Update(fn func(txn Transaction) error) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

// View runs fn inside a read transaction.
func (bs *BadgerStorage) View(fn func(txn Transaction) error) error {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

// Iterator returns a prefix iterator. The caller must Close it.
func (bs *BadgerStorage) Iterator(prefix []byte) Iterator {
	return &badgerIterator{db: bs.db, prefix: prefix}
}

type badgerTxn struct {
	txn *badger.Txn
}

func (bt *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := bt.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (bt *badgerTxn) Set(key, value []byte) error {
	return bt.txn.Set(key, value)
}

func (bt *badgerTxn) Delete(key []byte) error {
	return bt.txn.Delete(key)
}

func (bt *badgerTxn) Has(key []byte) (bool, error) {
	_, err := bt.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type badgerIterator struct {
	db     *badger.DB
	prefix []byte
	txn    *badger.Txn
	iter   *badger.Iterator
	closed bool
}

func (bi *badgerIterator) Next() bool {
	if bi.closed {
		return false
	}

	if bi.txn == nil {
		bi.txn = bi.db.NewTransaction(false)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		bi.iter = bi.txn.NewIterator(opts)
		bi.iter.Seek(bi.prefix)
	} else {
		bi.iter.Next()
	}

	return bi.iter.ValidForPrefix(bi.prefix)
}

func (bi *badgerIterator) Key() []byte {
	if bi.iter == nil {
		return nil
	}
	return bi.iter.Item().KeyCopy(nil)
}

func (bi *badgerIterator) Value() []byte {
	if bi.iter == nil {
		return nil
	}
	val, _ := bi.iter.Item().ValueCopy(nil)
	return val
}

func (bi *badgerIterator) Close() {
	if bi.closed {
		return
	}
	if bi.iter != nil {
		bi.iter.Close()
	}
	if bi.txn != nil {
		bi.txn.Discard()
	}
	bi.closed = true
}
