package ledger

import "fmt"

// IsAdmin reports whether account is the owner or a registered admin. The
// owner is implicitly privileged regardless of set membership.
func (e *Engine) IsAdmin(account string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return account == e.owner || e.admins[account]
}

// SetAdmin adds account to the admin set. Owner-only. Setting an account
// that is already an admin succeeds and still emits AdminChanged; the
// event stream records the owner's action, not the delta.
func (e *Engine) SetAdmin(caller, account string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if account == "" {
		return nil, fmt.Errorf("%w: empty account", ErrInvalidAmount)
	}

	e.admins[account] = true

	ev := AdminChangedEvent{Account: account, IsAdmin: true}
	e.emit(ev)
	return ev, nil
}

// RemoveAdmin removes account from the admin set. Owner-only and
// idempotent in the same way SetAdmin is.
func (e *Engine) RemoveAdmin(caller, account string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	if account == "" {
		return nil, fmt.Errorf("%w: empty account", ErrInvalidAmount)
	}

	delete(e.admins, account)

	ev := AdminChangedEvent{Account: account, IsAdmin: false}
	e.emit(ev)
	return ev, nil
}

// Admins returns the registered admin accounts. The owner is not listed;
// its privilege is implicit.
func (e *Engine) Admins() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	admins := make([]string, 0, len(e.admins))
	for a := range e.admins {
		admins = append(admins, a)
	}
	return admins
}
