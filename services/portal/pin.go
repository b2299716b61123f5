package portal

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	pinMin = 1000
	pinMax = 9999
)

func generatePIN(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	n, err := rand.Int(random, big.NewInt(pinMax-pinMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate PIN: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+pinMin), nil
}

// pinsMatch compares as strings so leading zeros are significant.
func pinsMatch(stored, input string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(input))) == 1
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
