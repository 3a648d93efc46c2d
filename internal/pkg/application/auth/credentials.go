package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword produces a salted bcrypt digest. The salt is random, so
// hashing the same input twice yields different digests.
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword compares plaintext against a stored credential. When
// the stored value is not a valid bcrypt digest it falls back to a
// direct equality check. That fallback is a migration shim for rows
// that predate hashing; removing it would silently lock those
// accounts out.
func VerifyPassword(plaintext, stored string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	if err == nil {
		return true
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false
	}
	return plaintext == stored
}
