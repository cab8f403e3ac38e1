// Package auth wraps bcrypt for the credential store.
package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost trades login latency against offline cracking. 14 keeps a
// hash under ~1s on commodity hardware while staying well above the
// library default.
const bcryptCost = 14

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether password matches the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
