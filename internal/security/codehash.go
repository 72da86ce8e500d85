package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashCode returns a SHA-256 hash of the verification code, hex-encoded.
// Used for storing and comparing codes without keeping the raw code around.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeHashEqual performs constant-time comparison of the provided code's hash
// with the stored hash. Returns true only if they match.
func CodeHashEqual(providedCode, storedHash string) bool {
	providedHash := HashCode(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
