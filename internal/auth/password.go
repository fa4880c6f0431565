package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher abstracts the credential hashing primitive so tests can
// substitute a cheap implementation.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher hashes credentials with bcrypt at the default cost.
type BcryptHasher struct{}

// Hash derives a bcrypt hash from the plaintext password.
func (BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash.
func (BcryptHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

var _ PasswordHasher = BcryptHasher{}
