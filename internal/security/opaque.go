package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// GenerateOpaqueToken returns n random bytes hex-encoded (2n characters).
// Used for session tokens and jti values.
func GenerateOpaqueToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashCredentialToken returns a SHA-256 hash of the credential token string, hex-encoded.
// Sessions store the hash as their validation key so the raw token is never persisted.
func HashCredentialToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// CredentialTokenHashEqual performs constant-time comparison of the provided token's hash
// with the stored hash. Returns true only if they match.
func CredentialTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashCredentialToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
