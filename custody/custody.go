// Package custody tracks holdings of external assets on behalf of
// ledger accounts. Each registered asset has a book of per-account
// holdings plus a pool balance: the amount currently locked in stake
// custody. The package implements the engine's CustodyBank collaborator,
// so staking an external asset moves value from an account's holdings
// into the pool, and withdrawing moves it back.
package custody

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BurstFinance/burst/core/amount"
	"github.com/BurstFinance/burst/core/ledger"
)

var (
	ErrUnknownAsset         = fmt.Errorf("unknown asset")
	ErrAssetExists          = fmt.Errorf("asset already registered")
	ErrInsufficientHoldings = fmt.Errorf("insufficient holdings")
)

// assetBook is the custody state of one external asset.
type assetBook struct {
	held map[string]amount.Amount
	pool amount.Amount
}

// Ledger is the custody ledger over all registered external assets.
type Ledger struct {
	mu     sync.RWMutex
	assets map[string]*assetBook
}

// New creates a custody ledger with the given assets pre-registered.
func New(assetIDs ...string) (*Ledger, error) {
	l := &Ledger{assets: make(map[string]*assetBook)}
	for _, id := range assetIDs {
		if err := l.RegisterAsset(id); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// RegisterAsset opens a custody book for a new asset id.
func (l *Ledger) RegisterAsset(id string) error {
	if id == "" {
		return fmt.Errorf("asset id cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.assets[id]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, id)
	}
	l.assets[id] = &assetBook{held: make(map[string]amount.Amount)}
	return nil
}

// Assets returns the registered asset ids, sorted.
func (l *Ledger) Assets() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.assets))
	for id := range l.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Deposit credits an account's holdings of an asset. This is the entry
// point for value arriving from outside the ledger.
func (l *Ledger) Deposit(assetID, account string, amt amount.Amount) error {
	if amt.IsZero() {
		return fmt.Errorf("%w: deposit amount cannot be zero", ledger.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.assets[assetID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}

	next, err := amount.Add(book.held[account], amt)
	if err != nil {
		return err
	}
	book.held[account] = next
	return nil
}

// Withdraw debits an account's holdings, releasing value back outside
// the ledger.
func (l *Ledger) Withdraw(assetID, account string, amt amount.Amount) error {
	if amt.IsZero() {
		return fmt.Errorf("%w: withdrawal amount cannot be zero", ledger.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.assets[assetID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	if amt > book.held[account] {
		return fmt.Errorf("%w: %s holds %s of %s, requested %s",
			ErrInsufficientHoldings, account, book.held[account], assetID, amt)
	}

	l.setHolding(book, account, book.held[account]-amt)
	return nil
}

// Holdings returns an account's spendable holdings of an asset.
func (l *Ledger) Holdings(assetID, account string) (amount.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	book, ok := l.assets[assetID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return book.held[account], nil
}

// PoolBalance returns the asset total locked in stake custody.
func (l *Ledger) PoolBalance(assetID string) (amount.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	book, ok := l.assets[assetID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return book.pool, nil
}

// Custodian resolves the custodian for one asset id. Implements the
// engine's CustodyBank.
func (l *Ledger) Custodian(assetID string) (ledger.Custodian, bool) {
	l.mu.RLock()
	_, ok := l.assets[assetID]
	l.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return &assetCustodian{ledger: l, assetID: assetID}, true
}

// setHolding writes a holding, dropping zero entries. Callers must hold
// the write lock.
func (l *Ledger) setHolding(book *assetBook, account string, amt amount.Amount) {
	if amt.IsZero() {
		delete(book.held, account)
		return
	}
	book.held[account] = amt
}

// assetCustodian adapts one asset book to the engine's Custodian
// interface.
type assetCustodian struct {
	ledger  *Ledger
	assetID string
}

// TransferFrom moves amt from the owner's holdings into the custody
// pool.
func (c *assetCustodian) TransferFrom(owner string, amt amount.Amount) error {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	book, ok := c.ledger.assets[c.assetID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, c.assetID)
	}
	if amt > book.held[owner] {
		return fmt.Errorf("%w: %s holds %s of %s, requested %s",
			ErrInsufficientHoldings, owner, book.held[owner], c.assetID, amt)
	}

	nextPool, err := amount.Add(book.pool, amt)
	if err != nil {
		return err
	}

	c.ledger.setHolding(book, owner, book.held[owner]-amt)
	book.pool = nextPool
	return nil
}

// Transfer releases amt from the custody pool back to the recipient's
// holdings.
func (c *assetCustodian) Transfer(recipient string, amt amount.Amount) error {
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	book, ok := c.ledger.assets[c.assetID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, c.assetID)
	}
	if amt > book.pool {
		return fmt.Errorf("custody pool of %s holds %s, requested %s",
			c.assetID, book.pool, amt)
	}

	next, err := amount.Add(book.held[recipient], amt)
	if err != nil {
		return err
	}

	book.pool -= amt
	book.held[recipient] = next
	return nil
}
