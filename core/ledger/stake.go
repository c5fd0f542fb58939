package ledger

import (
	"fmt"

	"github.com/BurstFinance/burst/core/amount"
)

// StakePosition reports a stake entry. Account is echoed back so a zero
// Amount is distinguishable from "no record for this account".
type StakePosition struct {
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

// StakeBalanceOf returns the stake entry for (asset, account).
func (e *Engine) StakeBalanceOf(asset AssetRef, account string) StakePosition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return StakePosition{
		Account: account,
		Amount:  e.stakes[stakeKey{asset: asset, account: account}],
	}
}

// TotalStaked returns the total native asset held in stake custody.
func (e *Engine) TotalStaked() amount.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.totalStaked
}

// Stake moves amt of asset from the caller's holdings into stake custody
// and credits the stake entry. For the native asset custody is a debit on
// the balance ledger; for an external asset it is an inbound transfer
// through the asset's custodian, performed before any ledger field is
// mutated.
func (e *Engine) Stake(asset AssetRef, caller string, amt amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amt.IsZero() {
		return nil, fmt.Errorf("%w: zero stake", ErrInvalidAmount)
	}

	key := stakeKey{asset: asset, account: caller}
	nextEntry, err := amount.Add(e.stakes[key], amt)
	if err != nil {
		return nil, err
	}

	if asset.IsNative() {
		nextStaked, err := amount.Add(e.totalStaked, amt)
		if err != nil {
			return nil, err
		}
		if err := e.debit(caller, amt); err != nil {
			return nil, err
		}
		e.totalStaked = nextStaked
	} else {
		custodian, ok := e.custody.Custodian(asset.ID)
		if !ok {
			return nil, fmt.Errorf("%w: no custodian for asset %s", ErrTransferFailed, asset.ID)
		}
		if err := custodian.TransferFrom(caller, amt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	e.stakes[key] = nextEntry

	ev := StakedEvent{Asset: asset, Account: caller, Amount: amt}
	e.emit(ev)
	return ev, nil
}

// WithdrawStake decreases the (asset, caller) stake entry and releases
// custody back to the caller: a balance credit for the native asset, an
// outbound custodian transfer for an external one. Fails with
// ErrInsufficientStake when amt exceeds the entry.
func (e *Engine) WithdrawStake(asset AssetRef, caller string, amt amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amt.IsZero() {
		return nil, fmt.Errorf("%w: zero withdrawal", ErrInvalidAmount)
	}

	key := stakeKey{asset: asset, account: caller}
	entry := e.stakes[key]
	if amt > entry {
		return nil, fmt.Errorf("%w: %s has %s staked, withdrawal of %s", ErrInsufficientStake, caller, entry, amt)
	}

	if asset.IsNative() {
		if err := e.credit(caller, amt); err != nil {
			return nil, err
		}
		e.totalStaked -= amt
	} else {
		custodian, ok := e.custody.Custodian(asset.ID)
		if !ok {
			return nil, fmt.Errorf("%w: no custodian for asset %s", ErrTransferFailed, asset.ID)
		}
		if err := custodian.Transfer(caller, amt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	if entry == amt {
		delete(e.stakes, key)
	} else {
		e.stakes[key] = entry - amt
	}

	ev := StakeWithdrawnEvent{Asset: asset, Account: caller, Amount: amt}
	e.emit(ev)
	return ev, nil
}
