// Package address implements the 20-byte account identifier used
// throughout the ledger. Addresses are derived from ML-DSA public keys
// by hashing with Blake2b-256 and keeping the last 20 bytes, and render
// as 0x-prefixed lowercase hex.
package address

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	mldsa "github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	Prefix     = "0x"
	StringLen  = 42 // "0x" + 40 hex characters
	ByteLength = 20
)

// Address is a 20-byte account identifier.
type Address [ByteLength]byte

// New derives an Address from an ML-DSA public key.
func New(pubKey *mldsa.PublicKey) (*Address, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}

	pubKeyBytes := pubKey.Bytes()
	if len(pubKeyBytes) == 0 {
		return nil, fmt.Errorf("public key bytes cannot be empty")
	}

	sum := blake2b.Sum256(pubKeyBytes)

	var addr Address
	copy(addr[:], sum[len(sum)-ByteLength:])
	return &addr, nil
}

// FromString parses a 0x-prefixed hex address string.
func FromString(s string) (*Address, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(s[len(Prefix):])
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %v", s, err)
	}

	var addr Address
	copy(addr[:], raw)
	return &addr, nil
}

// FromBytes creates an Address from raw bytes.
func FromBytes(b []byte) (*Address, error) {
	if len(b) != ByteLength {
		return nil, fmt.Errorf("address must be exactly %d bytes, got %d", ByteLength, len(b))
	}

	var addr Address
	copy(addr[:], b)
	return &addr, nil
}

// Validate checks that a string is a well-formed 0x address.
func Validate(s string) error {
	if len(s) != StringLen {
		return fmt.Errorf("address must be exactly %d characters long, got %d", StringLen, len(s))
	}
	if !strings.HasPrefix(s, Prefix) {
		return fmt.Errorf("address must start with %q", Prefix)
	}
	if _, err := hex.DecodeString(s[len(Prefix):]); err != nil {
		return fmt.Errorf("address contains non-hex characters: %v", err)
	}
	return nil
}

// IsValid reports whether a string is a well-formed 0x address.
func IsValid(s string) bool {
	return Validate(s) == nil
}

// Bytes returns the raw 20-byte address.
func (a *Address) Bytes() []byte {
	if a == nil {
		return nil
	}
	return a[:]
}

// String returns the 0x-prefixed lowercase hex representation.
func (a *Address) String() string {
	if a == nil {
		return Prefix + strings.Repeat("0", 2*ByteLength)
	}
	return Prefix + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is all zeros.
func (a *Address) IsZero() bool {
	if a == nil {
		return true
	}
	return *a == Address{}
}

// Equal reports whether two addresses are identical.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return bytes.Equal(a[:], other[:])
}

// Marshal encodes the address using CBOR.
func (a *Address) Marshal() ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot marshal nil address")
	}
	return cbor.Marshal(a[:])
}

// Unmarshal decodes CBOR data into the address.
func (a *Address) Unmarshal(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal address: %v", err)
	}
	if len(raw) != ByteLength {
		return fmt.Errorf("address must be exactly %d bytes, got %d", ByteLength, len(raw))
	}
	copy(a[:], raw)
	return nil
}

// MarshalJSON encodes the address as a 0x hex string.
func (a *Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a 0x hex string.
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("address must be a JSON string")
	}
	parsed, err := FromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	copy(a[:], parsed[:])
	return nil
}
