package ledger

import "github.com/BurstFinance/burst/core/amount"

// Event is a structured record of a committed state transition. Events are
// emitted only after the full mutation set of an operation has been
// applied; a failed operation emits nothing.
type Event interface {
	// Type returns a stable identifier for the event kind, used as the
	// discriminator in serialized event records.
	Type() string
}

// EventSink observes every event the engine emits, in commit order. Sinks
// are invoked synchronously inside the engine's critical section and must
// not call back into the engine.
type EventSink func(Event)

// TransferEvent records a balance movement. An empty From denotes a mint,
// an empty To denotes a burn.
type TransferEvent struct {
	From   string        `json:"from,omitempty"`
	To     string        `json:"to,omitempty"`
	Amount amount.Amount `json:"amount"`
}

func (TransferEvent) Type() string { return "transfer" }

// AdminChangedEvent records an owner mutation of the admin set. It is
// emitted even when the mutation was a no-op on the set itself.
type AdminChangedEvent struct {
	Account string `json:"account"`
	IsAdmin bool   `json:"is_admin"`
}

func (AdminChangedEvent) Type() string { return "admin_changed" }

// SlotPurchasedEvent records a slot purchase. CurrentPrice is the price
// the buyer paid; NextPrice is the advanced price the slot carries after
// the purchase.
type SlotPurchasedEvent struct {
	Buyer        string        `json:"buyer"`
	Index        int           `json:"index"`
	CurrentPrice amount.Amount `json:"current_price"`
	NextPrice    amount.Amount `json:"next_price"`
}

func (SlotPurchasedEvent) Type() string { return "slot_purchased" }

// StakedEvent records a deposit into the stake ledger.
type StakedEvent struct {
	Asset   AssetRef      `json:"asset"`
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

func (StakedEvent) Type() string { return "staked" }

// StakeWithdrawnEvent records a withdrawal from the stake ledger.
type StakeWithdrawnEvent struct {
	Asset   AssetRef      `json:"asset"`
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

func (StakeWithdrawnEvent) Type() string { return "stake_withdrawn" }

// RewardHarvestedEvent records the conversion of pending reward into
// spendable balance. A zero Amount marks the legal no-op harvest.
type RewardHarvestedEvent struct {
	Pool    PoolKind      `json:"pool"`
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

func (RewardHarvestedEvent) Type() string { return "reward_harvested" }

// RewardCompoundedEvent records the conversion of pending transactional
// reward directly into native stake.
type RewardCompoundedEvent struct {
	Account string        `json:"account"`
	Amount  amount.Amount `json:"amount"`
}

func (RewardCompoundedEvent) Type() string { return "reward_compounded" }

// MiningStatusChangedEvent records an operating-mode transition.
type MiningStatusChangedEvent struct {
	Active bool `json:"active"`
}

func (MiningStatusChangedEvent) Type() string { return "mining_status_changed" }
