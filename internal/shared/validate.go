package shared

import (
	"fmt"
	"regexp"
	"unicode"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ValidateUsername checks a registration username: 3-20 ASCII letters, digits, or underscores.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword checks a registration password: at least 8 ASCII letters or digits,
// with at least one of each.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidPassword)
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidPassword)
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		default:
			return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidPassword)
		}
	}

	if !letter || !digit {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidPassword)
	}
	return nil
}

// PasswordStrength scores a password from 0 to 3: length >= 8, contains a letter, contains a digit.
func PasswordStrength(password string) int {
	if password == "" {
		return 0
	}

	score := 0
	if len(password) >= 8 {
		score++
	}

	var letter, digit bool
	for _, r := range password {
		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			letter = true
		}
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			digit = true
		}
	}
	if letter {
		score++
	}
	if digit {
		score++
	}
	return score
}
