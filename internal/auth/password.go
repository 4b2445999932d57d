package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is raised from the teacher's bcrypt.DefaultCost (10) to meet
// the cost-12 floor §3/§9 require for clinical credentials.
const bcryptCost = 12

// HashPassword bcrypt-hashes a plaintext password with a fresh salt.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword runs bcrypt's constant-time comparison. Call sites must
// treat any error as "wrong password" and use the same generic message for
// both unknown-email and wrong-password cases (§4.1) so timing and wording
// never reveal which one occurred.
func ComparePassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
