package ledger

import (
	"fmt"

	"github.com/BurstFinance/burst/core/amount"
)

// BalanceOf returns the fungible balance of account, zero for accounts
// the ledger has never seen.
func (e *Engine) BalanceOf(account string) amount.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.balances[account]
}

// TotalMinted returns the cumulative amount ever minted.
func (e *Engine) TotalMinted() amount.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.totalMinted
}

// TotalBurned returns the cumulative amount ever burned.
func (e *Engine) TotalBurned() amount.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.totalBurned
}

// TotalSupply returns minted minus burned: the amount currently held in
// balances plus native stake custody.
func (e *Engine) TotalSupply() amount.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()

	// totalBurned never exceeds totalMinted: burns debit balances, and
	// balances are only ever credited from mints.
	return e.totalMinted - e.totalBurned
}

// credit increases account's balance, failing with overflow before any
// mutation. Internal primitive: callers hold the write lock and gate
// access themselves.
func (e *Engine) credit(account string, amt amount.Amount) error {
	next, err := amount.Add(e.balances[account], amt)
	if err != nil {
		return err
	}
	e.setBalance(account, next)
	return nil
}

// debit decreases account's balance, failing with ErrInsufficientBalance
// before any mutation. Internal primitive.
func (e *Engine) debit(account string, amt amount.Amount) error {
	current := e.balances[account]
	if amt > current {
		return fmt.Errorf("%w: %s has %s, debit of %s", ErrInsufficientBalance, account, current, amt)
	}
	e.setBalance(account, current-amt)
	return nil
}

// setBalance writes a balance entry, keeping the invariant that the map
// never holds zero entries. Zero-entry hygiene keeps state roots and
// snapshots deterministic regardless of mutation history.
func (e *Engine) setBalance(account string, amt amount.Amount) {
	if amt.IsZero() {
		delete(e.balances, account)
		return
	}
	e.balances[account] = amt
}

// MintTo credits freshly minted balance to account. Admin-gated. Emits a
// Transfer with an empty From.
func (e *Engine) MintTo(caller, account string, amt amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}

	return e.mintTo(account, amt)
}

// mintTo performs the mint under an already-held write lock. The minted
// total is checked before the credit so a failure leaves both intact.
func (e *Engine) mintTo(account string, amt amount.Amount) (Event, error) {
	nextMinted, err := amount.Add(e.totalMinted, amt)
	if err != nil {
		return nil, err
	}
	if err := e.credit(account, amt); err != nil {
		return nil, err
	}
	e.totalMinted = nextMinted

	ev := TransferEvent{To: account, Amount: amt}
	e.emit(ev)
	return ev, nil
}

// Transfer moves amt from the caller's balance to another account. Fails
// with ErrInvalidAmount on zero and ErrInsufficientBalance when the caller
// cannot cover it.
func (e *Engine) Transfer(caller, to string, amt amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amt.IsZero() {
		return nil, fmt.Errorf("%w: zero transfer", ErrInvalidAmount)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: empty recipient", ErrInvalidAmount)
	}

	if to == caller {
		if amt > e.balances[caller] {
			return nil, fmt.Errorf("%w: %s has %s, transfer of %s",
				ErrInsufficientBalance, caller, e.balances[caller], amt)
		}
		ev := TransferEvent{From: caller, To: to, Amount: amt}
		e.emit(ev)
		return ev, nil
	}

	// Check the credit side before debiting so a recipient overflow
	// cannot leave a half-applied transfer.
	nextTo, err := amount.Add(e.balances[to], amt)
	if err != nil {
		return nil, err
	}
	if err := e.debit(caller, amt); err != nil {
		return nil, err
	}
	e.setBalance(to, nextTo)

	ev := TransferEvent{From: caller, To: to, Amount: amt}
	e.emit(ev)
	return ev, nil
}

// Burn destroys amt from the caller's balance. Emits a Transfer with an
// empty To.
func (e *Engine) Burn(caller string, amt amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amt.IsZero() {
		return nil, fmt.Errorf("%w: zero burn", ErrInvalidAmount)
	}

	nextBurned, err := amount.Add(e.totalBurned, amt)
	if err != nil {
		return nil, err
	}
	if err := e.debit(caller, amt); err != nil {
		return nil, err
	}
	e.totalBurned = nextBurned

	ev := TransferEvent{From: caller, Amount: amt}
	e.emit(ev)
	return ev, nil
}
