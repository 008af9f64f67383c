package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPINLength = 4
	maxPINLength = 6
)

// HashPIN returns a bcrypt hash of the till PIN. PINs are short numeric
// codes, so bcrypt's default cost is plenty.
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN returns true when the PIN matches the stored hash.
func VerifyPIN(pin, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify pin: %w", err)
}

// ValidatePIN enforces the 4-6 digit numeric shape before hashing.
func ValidatePIN(pin string) error {
	pin = strings.TrimSpace(pin)
	if len(pin) < minPINLength || len(pin) > maxPINLength {
		return fmt.Errorf("pin must be %d-%d digits", minPINLength, maxPINLength)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("pin must contain digits only")
		}
	}
	return nil
}
