package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"math/big"
)

// GenerateBearerToken generates a secure random bearer credential of the
// specified length. It returns a base32 encoded string (without padding)
// truncated to the desired length.
func GenerateBearerToken(length int) (string, error) {
	numBytes := (length*5 + 7) / 8
	randomBytes := make([]byte, numBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	if len(token) > length {
		token = token[:length]
	}
	return token, nil
}

// GeneratePairingCode generates a secure numeric code with the given number of
// digits, zero-padded. Numeric so staff can read it to the extension prompt.
func GeneratePairingCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate pairing code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
