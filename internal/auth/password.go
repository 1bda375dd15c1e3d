package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier abstracts the hashing scheme so the cost factor or
// algorithm can change without touching the login flow.
type PasswordVerifier interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptVerifier verifies salted bcrypt hashes.
type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. An empty stored hash always
// fails, which is how SSO-only accounts are blocked from password login
// without a distinguishing error upstream.
func (v BcryptVerifier) Verify(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
