package ledger

import (
	"fmt"

	"github.com/BurstFinance/burst/core/amount"
)

// Price step applied on every purchase: an exact 10% increase.
const (
	priceStepNum = 11
	priceStepDen = 10
)

// Slot is one purchasable position in the bonding-curve market. Its price
// only ever rises.
type Slot struct {
	Owner        string        `json:"owner,omitempty"`
	CurrentPrice amount.Amount `json:"current_price"`
}

// SlotCount returns the fixed number of slots.
func (e *Engine) SlotCount() int {
	return len(e.slots)
}

// GetSlot returns a copy of the slot at index.
func (e *Engine) GetSlot(index int) (Slot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if index < 0 || index >= len(e.slots) {
		return Slot{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return e.slots[index], nil
}

// Slots returns a copy of the full slot list.
func (e *Engine) Slots() []Slot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	slots := make([]Slot, len(e.slots))
	copy(slots, e.slots)
	return slots
}

// BuySlot transfers ownership of the slot at index to the caller. The
// attached payment must equal the slot's current price exactly; strict
// equality keeps the price ladder deterministic under contention — of two
// callers racing for one slot, the one serialized second sees its stale
// payment rejected with ErrPriceMismatch. On success the price advances by
// exactly 10% and the payment is forwarded to the revenue sink.
func (e *Engine) BuySlot(caller string, index int, payment amount.Amount) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.slots) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	slot := &e.slots[index]
	if payment != slot.CurrentPrice {
		return nil, fmt.Errorf("%w: slot %d costs %s, attached %s",
			ErrPriceMismatch, index, slot.CurrentPrice, payment)
	}

	nextPrice, err := amount.MulRatio(slot.CurrentPrice, priceStepNum, priceStepDen)
	if err != nil {
		return nil, err
	}

	if e.revenue != nil {
		if err := e.revenue.ReceivePayment(caller, payment); err != nil {
			return nil, fmt.Errorf("%w: revenue sink: %v", ErrTransferFailed, err)
		}
	} else {
		nextTreasury, err := amount.Add(e.treasury, payment)
		if err != nil {
			return nil, err
		}
		e.treasury = nextTreasury
	}

	previousPrice := slot.CurrentPrice
	slot.Owner = caller
	slot.CurrentPrice = nextPrice

	ev := SlotPurchasedEvent{
		Buyer:        caller,
		Index:        index,
		CurrentPrice: previousPrice,
		NextPrice:    nextPrice,
	}
	e.emit(ev)
	return ev, nil
}

// TreasuryBalance returns the payments accumulated by the default revenue
// sink. Zero when an external sink is configured.
func (e *Engine) TreasuryBalance() amount.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.treasury
}
