package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxSecretLength is the longest client secret bcrypt can hash
const MaxSecretLength = 72

// HashSecret hashes a client secret for the auth.clients config section
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}
	if len(secret) > MaxSecretLength {
		return "", errors.New("secret exceeds maximum length of 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckSecret reports whether secret matches hash
func CheckSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
