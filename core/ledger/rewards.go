package ledger

import (
	"fmt"

	"github.com/BurstFinance/burst/core/amount"
)

// PoolKind identifies one of the three independent reward pools.
type PoolKind int

const (
	// PoolTransactional accrues rewards for transactional activity. It is
	// the only pool whose rewards can be compounded into stake.
	PoolTransactional PoolKind = iota

	// PoolLiquidity accrues liquidity-provision rewards.
	PoolLiquidity

	// PoolCollectible accrues collectible-holding rewards.
	PoolCollectible
)

// PoolKinds returns all pool kinds in their canonical order.
func PoolKinds() []PoolKind {
	return []PoolKind{PoolTransactional, PoolLiquidity, PoolCollectible}
}

func (k PoolKind) String() string {
	switch k {
	case PoolTransactional:
		return "transactional"
	case PoolLiquidity:
		return "liquidity"
	case PoolCollectible:
		return "collectible"
	default:
		return fmt.Sprintf("pool(%d)", int(k))
	}
}

// ParsePoolKind reads a pool kind from its canonical name.
func ParsePoolKind(s string) (PoolKind, error) {
	switch s {
	case "transactional":
		return PoolTransactional, nil
	case "liquidity":
		return PoolLiquidity, nil
	case "collectible":
		return PoolCollectible, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPool, s)
	}
}

// MarshalJSON encodes the kind as its canonical name.
func (k PoolKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical pool name.
func (k *PoolKind) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrUnknownPool, data)
	}
	kind, err := ParsePoolKind(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// PendingReward returns the unclaimed reward of account in the given pool.
func (e *Engine) PendingReward(kind PoolKind, account string) (amount.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pool, ok := e.pools[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPool, kind)
	}
	return pool[account], nil
}

// BatchMint credits pending rewards to a batch of accounts in one pool.
// Admin-gated. The accounts and amounts sequences must have equal length.
// The batch is all-or-nothing: every addition is staged and checked before
// any pool entry is written, so an overflow anywhere leaves the pool
// untouched.
func (e *Engine) BatchMint(caller string, kind PoolKind, accounts []string, amounts []amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return nil, err
	}

	pool, ok := e.pools[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, kind)
	}
	if len(accounts) != len(amounts) {
		return nil, fmt.Errorf("%w: %d accounts, %d amounts", ErrLengthMismatch, len(accounts), len(amounts))
	}

	// Stage all additions first. Repeated accounts accumulate within the
	// stage so their combined total is overflow-checked too.
	staged := make(map[string]amount.Amount, len(accounts))
	for i, account := range accounts {
		base, ok := staged[account]
		if !ok {
			base = pool[account]
		}
		next, err := amount.Add(base, amounts[i])
		if err != nil {
			return nil, err
		}
		staged[account] = next
	}

	for account, next := range staged {
		if next.IsZero() {
			delete(pool, account)
			continue
		}
		pool[account] = next
	}

	ev := RewardsBatchMintedEvent{Pool: kind, Count: len(accounts)}
	e.emit(ev)
	return ev, nil
}

// Harvest converts the caller's full pending reward in one pool into
// spendable balance. Harvesting an empty pool entry is a legal no-op that
// emits a zero-amount harvest event and nothing else.
func (e *Engine) Harvest(kind PoolKind, caller string) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, ok := e.pools[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, kind)
	}

	pending := pool[caller]
	if pending.IsZero() {
		ev := RewardHarvestedEvent{Pool: kind, Account: caller}
		e.emit(ev)
		return []Event{ev}, nil
	}

	mintEv, err := e.mintTo(caller, pending)
	if err != nil {
		return nil, err
	}
	delete(pool, caller)

	ev := RewardHarvestedEvent{Pool: kind, Account: caller, Amount: pending}
	e.emit(ev)
	return []Event{mintEv, ev}, nil
}

// Compound converts the caller's full pending transactional reward
// directly into native stake, without a round-trip through spendable
// balance. Compounding an empty entry is a legal no-op.
func (e *Engine) Compound(caller string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool := e.pools[PoolTransactional]
	pending := pool[caller]

	ev := RewardCompoundedEvent{Account: caller, Amount: pending}
	if pending.IsZero() {
		e.emit(ev)
		return ev, nil
	}

	key := stakeKey{asset: NativeAsset(), account: caller}
	nextEntry, err := amount.Add(e.stakes[key], pending)
	if err != nil {
		return nil, err
	}
	nextStaked, err := amount.Add(e.totalStaked, pending)
	if err != nil {
		return nil, err
	}
	nextMinted, err := amount.Add(e.totalMinted, pending)
	if err != nil {
		return nil, err
	}

	delete(pool, caller)
	e.stakes[key] = nextEntry
	e.totalStaked = nextStaked
	e.totalMinted = nextMinted

	e.emit(ev)
	return ev, nil
}

// RewardsBatchMintedEvent records an admin batch credit into one pool.
type RewardsBatchMintedEvent struct {
	Pool  PoolKind `json:"pool"`
	Count int      `json:"count"`
}

func (RewardsBatchMintedEvent) Type() string { return "rewards_batch_minted" }
