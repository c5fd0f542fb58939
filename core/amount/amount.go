// Package amount implements checked fixed-point arithmetic for token
// quantities. Every balance, stake, price, and reward in the ledger is an
// Amount; no other package performs unchecked arithmetic on them.
package amount

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Amount is an unsigned fixed-point token quantity expressed in base units
// of 10^-6 token. One whole token equals Scale base units.
type Amount uint64

const (
	// FracDigits is the number of fractional decimal digits carried by an
	// Amount.
	FracDigits = 6

	// Scale is the number of base units per whole token.
	Scale = 1_000_000

	// Max is the largest representable Amount.
	Max = Amount(^uint64(0))
)

var (
	ErrOverflow     = fmt.Errorf("amount overflow")
	ErrUnderflow    = fmt.Errorf("amount underflow")
	ErrDivideByZero = fmt.Errorf("amount division by zero")
)

// Add returns a+b, failing with ErrOverflow if the sum does not fit.
func Add(a, b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return Amount(sum), nil
}

// Sub returns a-b, failing with ErrUnderflow when b exceeds a.
func Sub(a, b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrUnderflow, a, b)
	}
	return a - b, nil
}

// MulRatio returns a*num/den using a 128-bit intermediate product, so the
// multiplication never loses precision before the division. The division
// truncates toward zero. Fails with ErrDivideByZero when den is zero and
// ErrOverflow when the quotient does not fit in 64 bits.
//
// A 10% price step is MulRatio(p, 11, 10); because the intermediate is
// exact, repeated application never drifts.
func MulRatio(a Amount, num, den uint64) (Amount, error) {
	if den == 0 {
		return 0, fmt.Errorf("%w: %d * %d / 0", ErrDivideByZero, a, num)
	}
	hi, lo := bits.Mul64(uint64(a), num)
	if hi >= den {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrOverflow, a, num, den)
	}
	quo, _ := bits.Div64(hi, lo, den)
	return Amount(quo), nil
}

// FromTokens converts a whole-token count into base units.
func FromTokens(tokens uint64) (Amount, error) {
	hi, lo := bits.Mul64(tokens, Scale)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d tokens", ErrOverflow, tokens)
	}
	return Amount(lo), nil
}

// Parse reads a decimal token quantity such as "12", "12.5" or
// "0.000001" into an Amount. At most FracDigits fractional digits are
// accepted.
func Parse(s string) (Amount, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > FracDigits {
		return 0, fmt.Errorf("amount %q has more than %d fractional digits", s, FracDigits)
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %v", s, err)
	}

	base, err := FromTokens(w)
	if err != nil {
		return 0, err
	}

	if frac == "" {
		return base, nil
	}

	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %v", s, err)
	}
	for i := len(frac); i < FracDigits; i++ {
		f *= 10
	}

	return Add(base, Amount(f))
}

// String formats the amount as a decimal token quantity with all six
// fractional digits, e.g. "12.500000".
func (a Amount) String() string {
	return fmt.Sprintf("%d.%06d", uint64(a)/Scale, uint64(a)%Scale)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }
