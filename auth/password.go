package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"calendai/ai-calendar/types"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	ErrBadUsername = errors.New("username may only contain letters and digits")
	ErrBadPassword = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrBadEmail    = errors.New("invalid email format")
)

// ValidateRegistration applies the sign-up rules.
func ValidateRegistration(req types.RegisterRequest) error {
	if req.Username == "" || strings.IndexFunc(req.Username, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) >= 0 {
		return ErrBadUsername
	}
	if len(req.Password) < MinPasswordLength {
		return ErrBadPassword
	}
	at := strings.LastIndex(req.Email, "@")
	if at <= 0 || !strings.Contains(req.Email[at+1:], ".") {
		return ErrBadEmail
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports ErrInvalidCredentials on any mismatch.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
