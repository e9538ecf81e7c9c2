// Package secret is the credential verifier: a slow, salted one-way
// transform used identically for account passwords and for refresh-token
// digests. Raw secrets never leave this package in recoverable form.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches bcrypt's adaptive work factor of 10 rounds.
const DefaultCost = bcrypt.DefaultCost

type Hasher struct {
	cost int
}

// NewHasher clamps the cost into bcrypt's supported range; zero or negative
// selects DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash produces a freshly salted digest. Two calls on the same input yield
// different digests; both verify.
func (h *Hasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether plain matches digest. bcrypt's comparison is
// constant-time over the derived key; there is no cheap string shortcut.
func (h *Hasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// Fingerprint condenses an arbitrarily long secret to a fixed 64-byte hex
// digest that fits bcrypt's 72-byte input limit. Signed refresh tokens are
// far longer than that limit, so they are fingerprinted before hashing;
// the fingerprint binds every byte of the original value.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RandomSecret returns n random bytes hex-encoded, for accounts created via
// a third-party identity where no caller-chosen password exists.
func RandomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
