// util/secret_util.go
package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AccessTokenBytes is the entropy of a generated access token.
const AccessTokenBytes = 32

// GenerateAccessToken returns a random hex encoded token.
func GenerateAccessToken() (string, error) {
	buf := make([]byte, AccessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSecret returns the lower-case hex SHA-256 of secret. Access tokens are
// stored only in this form.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks password against a stored hash. Besides bcrypt it
// accepts the legacy salted form: hex SHA-256 of "<salt>:<password>", where
// salt is the account id or the account email.
func VerifyPassword(storedHash, password string, salts ...string) bool {
	if storedHash == "" {
		return false
	}
	if strings.HasPrefix(storedHash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
	}

	stored := strings.ToLower(storedHash)
	for _, salt := range salts {
		if salt == "" {
			continue
		}
		candidate := HashSecret(salt + ":" + password)
		if subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}
