package ledger

import "fmt"

// Every failure the engine reports is one of these sentinels, wrapped with
// call-site context. Callers match with errors.Is. No operation mutates
// any ledger state when it returns an error.
var (
	ErrUnauthorized        = fmt.Errorf("caller is not authorized")
	ErrInvalidIndex        = fmt.Errorf("slot index out of range")
	ErrInvalidAmount       = fmt.Errorf("invalid amount")
	ErrLengthMismatch      = fmt.Errorf("accounts and amounts length mismatch")
	ErrInsufficientBalance = fmt.Errorf("insufficient balance")
	ErrInsufficientStake   = fmt.Errorf("insufficient stake")
	ErrPriceMismatch       = fmt.Errorf("attached payment does not match slot price")
	ErrTransferFailed      = fmt.Errorf("custody transfer failed")
	ErrAlreadyStopped      = fmt.Errorf("mining already stopped")
	ErrAlreadyActive       = fmt.Errorf("mining already active")
	ErrUnknownPool         = fmt.Errorf("unknown reward pool")
)
