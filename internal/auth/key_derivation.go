package auth

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DerivedKeyLength suits HMAC-SHA256.
const DerivedKeyLength = 32

// Each purpose yields an independent key from the same secret. Bumping the
// version suffix invalidates every token signed under the old key.
const purposeDevToken = "social-events-dev-token-v1"

var ErrInvalidMasterSecret = errors.New("master secret cannot be empty")

// DeriveKey expands masterSecret into a DerivedKeyLength key with
// HKDF-SHA256, using purpose as the info parameter.
func DeriveKey(masterSecret []byte, purpose string) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, ErrInvalidMasterSecret
	}
	key := make([]byte, DerivedKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterSecret, nil, []byte(purpose)), key); err != nil {
		return nil, err
	}
	return key, nil
}

func DeriveDevTokenKey(masterSecret []byte) ([]byte, error) {
	return DeriveKey(masterSecret, purposeDevToken)
}
