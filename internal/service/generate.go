package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// GenerateOTP returns a 6-digit code drawn uniformly from
// [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewSessionID returns an unguessable session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewAccessToken mints an opaque bearer token bound to userID.
func NewAccessToken(userID string) string {
	return userID + "_" + uuid.NewString()
}
