package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes plain with bcrypt.  Costs outside bcrypt's accepted
// range are clamped so a bad BCRYPT_COST never blocks registration.
func HashPassword(plain string, cost int) (string, error) {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.DefaultCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret reports whether plain matches a bcrypt hash.  It serves both
// member passwords and the operator API token.
func VerifySecret(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
