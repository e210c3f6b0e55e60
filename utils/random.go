package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewCredential returns a fresh scannable ticket credential. 16 random
// bytes keep collisions out of reach; the unique index on the column is
// the final guard.
func NewCredential() (string, error) {
	code, err := GenerateCode(16)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TKY-%s", code), nil
}
