package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when an account would be created without a password.
var ErrEmptyPassword = errors.New("password must not be empty")

// dummyHash is compared against when the user does not exist, so a failed login costs the
// same whether or not the username is known.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("blogthread-dummy-password"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash of password. bcrypt rejects inputs over 72 bytes.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck performs a comparison whose result is discarded.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
