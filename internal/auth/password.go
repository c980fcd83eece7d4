package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is applied uniformly, including the bootstrap super admin.
const bcryptCost = 12

// HashPassword returns the salted one-way hash of plaintext.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches hash. A mismatch is a
// normal negative result, not an error.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
