// Package crypto holds the ML-DSA key pair used to identify node
// operators. The engine itself only sees addresses; keys exist so a
// deployment can prove ownership of the operator address.
package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/BurstFinance/burst/crypto/address"
)

// KeyPair is an ML-DSA-44 signing key with its derived account address.
type KeyPair struct {
	priv *mldsa44.PrivateKey
	pub  *mldsa44.PublicKey
	addr *address.Address
}

// GenerateKeyPair creates a new random key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := mldsa44.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newKeyPair(pub, priv)
}

// DeriveKeyPair generates a deterministic key pair from a seed label.
// Intended for development deployments where the operator address must
// be stable across restarts; production deployments load a stored key.
func DeriveKeyPair(label string) (*KeyPair, error) {
	seed := sha256.Sum256([]byte(label))

	pub, priv, err := mldsa44.GenerateKey(bytes.NewReader(seed[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to derive key from label %q: %w", label, err)
	}
	return newKeyPair(pub, priv)
}

func newKeyPair(pub *mldsa44.PublicKey, priv *mldsa44.PrivateKey) (*KeyPair, error) {
	addr, err := address.New(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}
	return &KeyPair{priv: priv, pub: pub, addr: addr}, nil
}

// Address returns the account address derived from the public key.
func (k *KeyPair) Address() *address.Address {
	return k.addr
}

// PublicKey returns the underlying ML-DSA public key.
func (k *KeyPair) PublicKey() *mldsa44.PublicKey {
	return k.pub
}

// Sign signs a message with the private key.
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	sig := make([]byte, mldsa44.SignatureSize)
	if err := mldsa44.SignTo(k.priv, message, nil, false, sig); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Verify checks a signature made by pub over message.
func Verify(pub *mldsa44.PublicKey, message, sig []byte) bool {
	return mldsa44.Verify(pub, message, nil, sig)
}
