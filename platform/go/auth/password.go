package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptVerifier hashes and checks secrets with bcrypt.
type BcryptVerifier struct {
	cost  int
	dummy []byte
}

// NewBcryptVerifier builds a verifier. A cost of 0 uses bcrypt.DefaultCost.
func NewBcryptVerifier(cost int) (*BcryptVerifier, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("worklane-dummy-secret"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &BcryptVerifier{cost: cost, dummy: dummy}, nil
}

// Hash produces a salted verifier for secret.
func (b *BcryptVerifier) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether secret matches verifier. Malformed verifiers never match.
func (b *BcryptVerifier) Matches(secret, verifier string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(verifier), []byte(secret))
	return err == nil
}

// Burn runs one comparison against a fixed hash so that a missing identity
// costs the same as a wrong secret.
func (b *BcryptVerifier) Burn(secret string) {
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(secret))
}
