package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Generate returns a random 6-digit numeric code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Hash returns the hex sha256 digest of the code. Only the hash is ever
// persisted.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Verify compares a candidate code against a stored hash in constant time.
func Verify(code, storedHash string) bool {
	candidate := Hash(code)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
