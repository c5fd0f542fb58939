// Package ledger implements the Burst value-accounting engine: fungible
// balances, per-asset stake positions, a bonding-curve slot market, and
// three reward pools, gated by an owner/admin registry and a global
// operating mode.
//
// The engine is a single-writer state machine. Every mutating operation
// runs to completion under one write lock: it validates the caller and
// input, performs checked arithmetic on a fully pre-computed mutation set,
// applies it, and emits events describing the transition. On any error the
// state is exactly as before the call. Read-only queries share a read lock
// and always observe a consistent snapshot.
package ledger

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/BurstFinance/burst/config"
	"github.com/BurstFinance/burst/core/amount"
)

type stakeKey struct {
	asset   AssetRef
	account string
}

// Engine holds the complete ledger state. Construct one per process with
// New and share it by reference.
type Engine struct {
	// Access control
	owner  string
	admins map[string]bool

	// Operating mode
	active bool

	// Balance ledger
	balances    map[string]amount.Amount
	totalMinted amount.Amount
	totalBurned amount.Amount

	// Stake ledger
	stakes      map[stakeKey]amount.Amount
	totalStaked amount.Amount // native asset only

	// Slot market
	slots []Slot

	// Reward pools
	pools map[PoolKind]map[string]amount.Amount

	// Collaborators
	custody CustodyBank
	revenue RevenueSink
	sink    EventSink

	// Treasury total accumulated by the default revenue sink
	treasury amount.Amount

	mu sync.RWMutex
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithEventSink registers a sink observing every emitted event. The
// sink is invoked while the engine holds its write lock, so it must not
// block or perform I/O; queue the event and return.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithCustodyBank supplies the resolver for external-asset custodians.
func WithCustodyBank(bank CustodyBank) Option {
	return func(e *Engine) { e.custody = bank }
}

// WithRevenueSink redirects slot-purchase payments to an external
// destination instead of the internal treasury counter.
func WithRevenueSink(sink RevenueSink) Option {
	return func(e *Engine) { e.revenue = sink }
}

// New creates an engine with every slot priced at the configured base
// price, an empty admin set, and the operating mode Active. The owner is
// immutable for the engine's lifetime.
func New(cfg *config.EngineConfig, opts ...Option) (*Engine, error) {
	if cfg.Owner == "" {
		return nil, fmt.Errorf("engine owner cannot be empty")
	}
	if cfg.SlotCount <= 0 {
		return nil, fmt.Errorf("slot count must be positive, got %d", cfg.SlotCount)
	}
	if cfg.BasePrice == 0 {
		return nil, fmt.Errorf("base price must be positive")
	}

	slots := make([]Slot, cfg.SlotCount)
	for i := range slots {
		slots[i].CurrentPrice = cfg.BasePrice
	}

	e := &Engine{
		owner:    cfg.Owner,
		admins:   make(map[string]bool),
		active:   true,
		balances: make(map[string]amount.Amount),
		stakes:   make(map[stakeKey]amount.Amount),
		slots:    slots,
		pools: map[PoolKind]map[string]amount.Amount{
			PoolTransactional: make(map[string]amount.Amount),
			PoolLiquidity:     make(map[string]amount.Amount),
			PoolCollectible:   make(map[string]amount.Amount),
		},
		custody: StaticCustodyBank{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Owner returns the immutable owner address.
func (e *Engine) Owner() string { return e.owner }

// IsActive reports whether the operating mode is Active.
func (e *Engine) IsActive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.active
}

// StopMining sets the operating mode to Stopped. Owner-only; fails with
// ErrAlreadyStopped when the mode is already Stopped.
func (e *Engine) StopMining(caller string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if !e.active {
		return nil, ErrAlreadyStopped
	}

	e.active = false

	ev := MiningStatusChangedEvent{Active: false}
	e.emit(ev)
	return ev, nil
}

// ResumeMining sets the operating mode back to Active. Owner-only; fails
// with ErrAlreadyActive when the mode is already Active.
func (e *Engine) ResumeMining(caller string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if e.active {
		return nil, ErrAlreadyActive
	}

	e.active = true

	ev := MiningStatusChangedEvent{Active: true}
	e.emit(ev)
	return ev, nil
}

// Status summarizes the engine state for monitoring.
type Status struct {
	Owner       string        `json:"owner"`
	AdminCount  int           `json:"admin_count"`
	Active      bool          `json:"active"`
	SlotCount   int           `json:"slot_count"`
	Accounts    int           `json:"accounts"`
	TotalMinted amount.Amount `json:"total_minted"`
	TotalBurned amount.Amount `json:"total_burned"`
	TotalStaked amount.Amount `json:"total_staked"`
	Treasury    amount.Amount `json:"treasury"`
	StateRoot   string        `json:"state_root"`
}

// GetStatus returns a consistent status summary.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Status{
		Owner:       e.owner,
		AdminCount:  len(e.admins),
		Active:      e.active,
		SlotCount:   len(e.slots),
		Accounts:    len(e.balances),
		TotalMinted: e.totalMinted,
		TotalBurned: e.totalBurned,
		TotalStaked: e.totalStaked,
		Treasury:    e.treasury,
		StateRoot:   e.stateRoot(),
	}
}

// StateRoot returns the Blake2b hash of the deterministically serialized
// engine state.
func (e *Engine) StateRoot() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.stateRoot()
}

// stateRoot computes the state hash. Callers must hold at least a read
// lock.
func (e *Engine) stateRoot() string {
	var data []byte

	appendAmount := func(a amount.Amount) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(a))
		data = append(data, buf[:]...)
	}

	// Strings are length-prefixed so adjacent fields cannot collide
	// under concatenation.
	appendString := func(s string) {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(len(s)))
		data = append(data, buf[:]...)
		data = append(data, s...)
	}

	appendString(e.owner)
	if e.active {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	appendAmount(e.totalMinted)
	appendAmount(e.totalBurned)
	appendAmount(e.totalStaked)
	appendAmount(e.treasury)

	admins := make([]string, 0, len(e.admins))
	for a := range e.admins {
		admins = append(admins, a)
	}
	sort.Strings(admins)
	for _, a := range admins {
		appendString(a)
	}

	accounts := make([]string, 0, len(e.balances))
	for a := range e.balances {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	for _, a := range accounts {
		appendString(a)
		appendAmount(e.balances[a])
	}

	stakeKeys := make([]stakeKey, 0, len(e.stakes))
	for k := range e.stakes {
		stakeKeys = append(stakeKeys, k)
	}
	sort.Slice(stakeKeys, func(i, j int) bool {
		if stakeKeys[i].asset.ID != stakeKeys[j].asset.ID {
			return stakeKeys[i].asset.ID < stakeKeys[j].asset.ID
		}
		return stakeKeys[i].account < stakeKeys[j].account
	})
	for _, k := range stakeKeys {
		appendString(k.asset.ID)
		appendString(k.account)
		appendAmount(e.stakes[k])
	}

	for _, kind := range PoolKinds() {
		pool := e.pools[kind]
		members := make([]string, 0, len(pool))
		for a := range pool {
			members = append(members, a)
		}
		sort.Strings(members)
		appendString(kind.String())
		for _, a := range members {
			appendString(a)
			appendAmount(pool[a])
		}
	}

	for _, slot := range e.slots {
		appendString(slot.Owner)
		appendAmount(slot.CurrentPrice)
	}

	hash := blake2b.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// emit delivers an event to the configured sink. Callers must hold the
// write lock and call emit only after the mutation set is fully applied.
func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

// requireOwner fails with ErrUnauthorized unless caller is the owner.
func (e *Engine) requireOwner(caller string) error {
	if caller != e.owner {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

// requireAdmin fails with ErrUnauthorized unless caller is the owner or a
// registered admin.
func (e *Engine) requireAdmin(caller string) error {
	if caller != e.owner && !e.admins[caller] {
		return fmt.Errorf("%w: %s is not an admin", ErrUnauthorized, caller)
	}
	return nil
}
