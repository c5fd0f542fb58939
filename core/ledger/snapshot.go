package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/BurstFinance/burst/core/amount"
)

// AccountState is the per-account slice of a snapshot: balance, stake
// entries keyed by asset id (empty key for the native asset), and pending
// rewards keyed by pool name.
type AccountState struct {
	Balance amount.Amount            `json:"balance" cbor:"1,keyasint"`
	Stakes  map[string]amount.Amount `json:"stakes,omitempty" cbor:"2,keyasint,omitempty"`
	Rewards map[string]amount.Amount `json:"rewards,omitempty" cbor:"3,keyasint,omitempty"`
}

// Snapshot is a deep, point-in-time copy of the complete engine state,
// suitable for persistence and restart recovery.
type Snapshot struct {
	Owner       string                   `json:"owner"`
	Admins      []string                 `json:"admins,omitempty"`
	Active      bool                     `json:"active"`
	TotalMinted amount.Amount            `json:"total_minted"`
	TotalBurned amount.Amount            `json:"total_burned"`
	TotalStaked amount.Amount            `json:"total_staked"`
	Treasury    amount.Amount            `json:"treasury"`
	Slots       []Slot                   `json:"slots"`
	Accounts    map[string]*AccountState `json:"accounts"`
	StateRoot   string                   `json:"state_root"`
	Timestamp   int64                    `json:"timestamp"`
}

// Snapshot captures the current engine state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts := make(map[string]*AccountState)
	state := func(account string) *AccountState {
		st, ok := accounts[account]
		if !ok {
			st = &AccountState{}
			accounts[account] = st
		}
		return st
	}

	for account, balance := range e.balances {
		state(account).Balance = balance
	}
	for key, staked := range e.stakes {
		st := state(key.account)
		if st.Stakes == nil {
			st.Stakes = make(map[string]amount.Amount)
		}
		st.Stakes[key.asset.ID] = staked
	}
	for kind, pool := range e.pools {
		for account, pending := range pool {
			if pending.IsZero() {
				continue
			}
			st := state(account)
			if st.Rewards == nil {
				st.Rewards = make(map[string]amount.Amount)
			}
			st.Rewards[kind.String()] = pending
		}
	}

	admins := make([]string, 0, len(e.admins))
	for a := range e.admins {
		admins = append(admins, a)
	}
	sort.Strings(admins)

	slots := make([]Slot, len(e.slots))
	copy(slots, e.slots)

	return &Snapshot{
		Owner:       e.owner,
		Admins:      admins,
		Active:      e.active,
		TotalMinted: e.totalMinted,
		TotalBurned: e.totalBurned,
		TotalStaked: e.totalStaked,
		Treasury:    e.treasury,
		Slots:       slots,
		Accounts:    accounts,
		StateRoot:   e.stateRoot(),
		Timestamp:   time.Now().Unix(),
	}
}

// Restore replaces the engine state with the snapshot's. The snapshot must
// belong to the same owner and slot count the engine was constructed with.
func (e *Engine) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.Owner != e.owner {
		return fmt.Errorf("snapshot owner %s does not match engine owner %s", snap.Owner, e.owner)
	}
	if len(snap.Slots) != len(e.slots) {
		return fmt.Errorf("snapshot has %d slots, engine configured with %d", len(snap.Slots), len(e.slots))
	}

	admins := make(map[string]bool, len(snap.Admins))
	for _, a := range snap.Admins {
		admins[a] = true
	}

	balances := make(map[string]amount.Amount)
	stakes := make(map[stakeKey]amount.Amount)
	pools := map[PoolKind]map[string]amount.Amount{
		PoolTransactional: make(map[string]amount.Amount),
		PoolLiquidity:     make(map[string]amount.Amount),
		PoolCollectible:   make(map[string]amount.Amount),
	}

	for account, st := range snap.Accounts {
		if !st.Balance.IsZero() {
			balances[account] = st.Balance
		}
		for assetID, staked := range st.Stakes {
			if staked.IsZero() {
				continue
			}
			stakes[stakeKey{asset: AssetRef{ID: assetID}, account: account}] = staked
		}
		for poolName, pending := range st.Rewards {
			kind, err := ParsePoolKind(poolName)
			if err != nil {
				return fmt.Errorf("account %s: %w", account, err)
			}
			if !pending.IsZero() {
				pools[kind][account] = pending
			}
		}
	}

	slots := make([]Slot, len(snap.Slots))
	copy(slots, snap.Slots)

	e.admins = admins
	e.active = snap.Active
	e.balances = balances
	e.stakes = stakes
	e.pools = pools
	e.slots = slots
	e.totalMinted = snap.TotalMinted
	e.totalBurned = snap.TotalBurned
	e.totalStaked = snap.TotalStaked
	e.treasury = snap.Treasury

	return nil
}
