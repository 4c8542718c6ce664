// Package password wraps the one-way hashing primitive. Verification
// errors are treated as a deny and never escape this boundary.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash derives a one-way digest from a plaintext password.
func Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plain matches the stored digest. Any
// comparison error, including a malformed digest, is a mismatch.
func Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
