package utils

import "golang.org/x/crypto/bcrypt"

// MinBcryptCost is the floor applied to the configured cost. Anything weaker
// makes offline guessing too cheap.
const MinBcryptCost = 10

// HashPassword returns the bcrypt hash of plain using the given cost, clamped
// to MinBcryptCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
