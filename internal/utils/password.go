package utils

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the minimum work factor accepted for stored
// credentials.
const DefaultBcryptCost = 12

// MaxBcryptCost is the largest cost bcrypt accepts.
const MaxBcryptCost = bcrypt.MaxCost

// HashPassword returns bcrypt hash using the given cost. Costs below
// DefaultBcryptCost are raised to it.
func HashPassword(plain string, cost int) (string, error) {
	if cost < DefaultBcryptCost {
		cost = DefaultBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
