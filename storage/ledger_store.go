package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/BurstFinance/burst/core/amount"
	"github.com/BurstFinance/burst/core/ledger"
)

// snapshotMeta is the snapshot header persisted separately from the
// per-account and per-slot records.
type snapshotMeta struct {
	Owner       string        `cbor:"1,keyasint"`
	Admins      []string      `cbor:"2,keyasint,omitempty"`
	Active      bool          `cbor:"3,keyasint"`
	TotalMinted amount.Amount `cbor:"4,keyasint"`
	TotalBurned amount.Amount `cbor:"5,keyasint"`
	TotalStaked amount.Amount `cbor:"6,keyasint"`
	Treasury    amount.Amount `cbor:"7,keyasint"`
	SlotCount   int           `cbor:"8,keyasint"`
	StateRoot   string        `cbor:"9,keyasint"`
	Timestamp   int64         `cbor:"10,keyasint"`
}

// JournalEntry is one persisted ledger event.
type JournalEntry struct {
	Seq   uint64          `json:"seq"`
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// LedgerStore persists engine snapshots and an append-only event
// journal on top of a Storage backend. Snapshot saves are atomic;
// journal entries are sequenced and never rewritten.
type LedgerStore struct {
	storage Storage

	mu      sync.Mutex
	nextSeq uint64
}

// NewLedgerStore wraps a Storage backend, recovering the journal
// sequence from a previous run.
func NewLedgerStore(s Storage) (*LedgerStore, error) {
	ls := &LedgerStore{storage: s}

	data, err := s.Get(MetaKey("journal_seq"))
	switch err {
	case nil:
		if len(data) != 8 {
			return nil, fmt.Errorf("corrupt journal sequence: %d bytes", len(data))
		}
		ls.nextSeq = binary.BigEndian.Uint64(data)
	case ErrKeyNotFound:
	default:
		return nil, fmt.Errorf("failed to read journal sequence: %w", err)
	}

	return ls, nil
}

// SaveSnapshot atomically replaces the persisted snapshot.
func (ls *LedgerStore) SaveSnapshot(snap *ledger.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	// Collect account keys from the previous snapshot so accounts that
	// have since emptied out are removed.
	stale := make(map[string]bool)
	iter := ls.storage.Iterator([]byte(AccountPrefix))
	for iter.Next() {
		stale[string(iter.Key())] = true
	}
	iter.Close()

	meta := snapshotMeta{
		Owner:       snap.Owner,
		Admins:      snap.Admins,
		Active:      snap.Active,
		TotalMinted: snap.TotalMinted,
		TotalBurned: snap.TotalBurned,
		TotalStaked: snap.TotalStaked,
		Treasury:    snap.Treasury,
		SlotCount:   len(snap.Slots),
		StateRoot:   snap.StateRoot,
		Timestamp:   snap.Timestamp,
	}
	metaData, err := cbor.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot meta: %w", err)
	}

	return ls.storage.Update(func(txn Transaction) error {
		if err := txn.Set(MetaKey("state"), metaData); err != nil {
			return err
		}

		for account, st := range snap.Accounts {
			data, err := cbor.Marshal(st)
			if err != nil {
				return fmt.Errorf("failed to marshal account %s: %w", account, err)
			}
			key := AccountKey(account)
			delete(stale, string(key))
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		for key := range stale {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}

		for i, slot := range snap.Slots {
			data, err := cbor.Marshal(slot)
			if err != nil {
				return fmt.Errorf("failed to marshal slot %d: %w", i, err)
			}
			if err := txn.Set(SlotKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot reads the persisted snapshot. Returns ErrKeyNotFound
// when the store has never been saved to.
func (ls *LedgerStore) LoadSnapshot() (*ledger.Snapshot, error) {
	metaData, err := ls.storage.Get(MetaKey("state"))
	if err != nil {
		return nil, err
	}

	var meta snapshotMeta
	if err := cbor.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot meta: %w", err)
	}

	snap := &ledger.Snapshot{
		Owner:       meta.Owner,
		Admins:      meta.Admins,
		Active:      meta.Active,
		TotalMinted: meta.TotalMinted,
		TotalBurned: meta.TotalBurned,
		TotalStaked: meta.TotalStaked,
		Treasury:    meta.Treasury,
		Slots:       make([]ledger.Slot, meta.SlotCount),
		Accounts:    make(map[string]*ledger.AccountState),
		StateRoot:   meta.StateRoot,
		Timestamp:   meta.Timestamp,
	}

	iter := ls.storage.Iterator([]byte(AccountPrefix))
	for iter.Next() {
		var st ledger.AccountState
		if err := cbor.Unmarshal(iter.Value(), &st); err != nil {
			iter.Close()
			return nil, fmt.Errorf("failed to unmarshal account %s: %w", iter.Key(), err)
		}
		account := string(iter.Key()[len(AccountPrefix):])
		snap.Accounts[account] = &st
	}
	iter.Close()

	for i := 0; i < meta.SlotCount; i++ {
		data, err := ls.storage.Get(SlotKey(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read slot %d: %w", i, err)
		}
		if err := cbor.Unmarshal(data, &snap.Slots[i]); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slot %d: %w", i, err)
		}
	}

	return snap, nil
}

// AppendEvent adds one event to the journal.
func (ls *LedgerStore) AppendEvent(ev ledger.Event) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.Type(), err)
	}
	entry := JournalEntry{Seq: ls.nextSeq, Type: ev.Type(), Event: payload}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, ls.nextSeq+1)

	err = ls.storage.Update(func(txn Transaction) error {
		if err := txn.Set(eventKey(ls.nextSeq), data); err != nil {
			return err
		}
		return txn.Set(MetaKey("journal_seq"), seq)
	})
	if err != nil {
		return err
	}

	ls.nextSeq++
	return nil
}

// Events returns up to limit journal entries with sequence >= from, in
// order. A limit <= 0 means no limit.
func (ls *LedgerStore) Events(from uint64, limit int) ([]JournalEntry, error) {
	var entries []JournalEntry

	iter := ls.storage.Iterator([]byte(EventPrefix))
	defer iter.Close()

	for iter.Next() {
		var entry JournalEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("corrupt journal entry %s: %w", iter.Key(), err)
		}
		if entry.Seq < from {
			continue
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}

	return entries, nil
}

// EventCount returns the number of journal entries written so far.
func (ls *LedgerStore) EventCount() uint64 {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	return ls.nextSeq
}

// eventKey encodes the sequence big-endian so lexicographic key order
// matches append order.
func eventKey(seq uint64) []byte {
	key := make([]byte, len(EventPrefix)+8)
	copy(key, EventPrefix)
	binary.BigEndian.PutUint64(key[len(EventPrefix):], seq)
	return key
}
