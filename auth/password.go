// Package auth holds password hashing and the signed bearer tokens used by
// the REST API.
package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

const specialChars = "!@#$%^&*"

// ErrWeakPassword is returned (wrapped in a StrengthError) when a password
// fails the policy.
var ErrWeakPassword = errors.New("password does not meet the strength policy")

// StrengthError lists every rule a password broke.
type StrengthError struct {
	Problems []string
}

func (e *StrengthError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *StrengthError) Unwrap() error { return ErrWeakPassword }

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckStrength validates password against the policy: at least 8
// characters with a lowercase letter, an uppercase letter, a digit and one
// of !@#$%^&*.
func CheckStrength(password string) error {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	var problems []string
	if len([]rune(password)) < 8 {
		problems = append(problems, "must be at least 8 characters long")
	}
	if !lower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !upper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !digit {
		problems = append(problems, "must contain a number")
	}
	if !special {
		problems = append(problems, "must contain a special character ("+specialChars+")")
	}
	if len(problems) > 0 {
		return &StrengthError{Problems: problems}
	}
	return nil
}
