package auth

import "golang.org/x/crypto/bcrypt"

// Comparator abstracts credential comparison so the login flow can be
// exercised without paying bcrypt cost in tests.
type Comparator interface {
	Compare(hashed, plain string) error
}

// BcryptComparator is the production Comparator.
type BcryptComparator struct{}

func (BcryptComparator) Compare(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// HashPassword hashes a plaintext password with the configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
