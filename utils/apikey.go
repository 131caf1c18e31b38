package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateAPIKey creates a new random API key. The raw value is returned
// to the caller exactly once; only its hash is stored.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return "agk_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
