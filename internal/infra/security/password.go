package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor applied when hashing new passwords. Stored
// hashes embed their own cost, so verification works for hashes produced at
// any historical factor.
const bcryptCost = 12

// HashPassword generates a salted bcrypt hash for the provided password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("bcrypt: password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword compares the candidate password against a stored bcrypt hash.
// It returns false, never an error, for empty or mismatched inputs; only a
// structurally invalid stored hash surfaces an error.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("bcrypt: compare password: %w", err)
}
