package security

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateNumericCode returns a numeric verification code of the given number
// of digits (e.g. "483920"). Uses crypto/rand for randomness.
func GenerateNumericCode(digits int) (string, error) {
	b := make([]byte, digits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, digits)
	for i := 0; i < digits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}

// GenerateBackupCode returns a 12-character uppercase hex backup code
// (6 random bytes, e.g. "3F9A0C81D24E").
func GenerateBackupCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
