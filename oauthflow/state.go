package oauthflow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const stateBytes = 16

// StateLength is the length of a generated state string.
const StateLength = stateBytes * 2

// PendingState is the anti-forgery value issued before redirecting to Discord.
type PendingState struct {
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// GenerateState returns 32 random hex characters.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
