package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// VerificationTokenBytes sizes the email verification token. It is
	// stored as-is and matched exactly, so high entropy is the only defense.
	VerificationTokenBytes = 64

	// ResetTokenBytes sizes the password reset token. Only its bcrypt hash
	// is persisted.
	ResetTokenBytes = 20

	resetTokenCost = 10
)

// GenerateToken returns n random bytes from crypto/rand, hex encoded.
func GenerateToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashResetToken computes the irreversible hash of a reset token for
// storage. The plaintext token goes only into the reset email.
func HashResetToken(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), resetTokenCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash reset token: %w", err)
	}
	return string(hashed), nil
}

// CompareResetToken checks a plaintext reset token against a stored hash.
// The comparison is deliberately slow; callers must not hold store locks
// across it.
func CompareResetToken(hash, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
