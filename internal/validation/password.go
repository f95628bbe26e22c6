// Package validation holds input rules shared by the HTTP layer and services.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 128
	maxEmailLength    = 254
	maxFullNameLength = 120
)

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if n > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !special {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("password must contain %s", strings.Join(missing, ", "))
	}
	return nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks an already-normalised address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must be at most %d characters", maxEmailLength)
	}
	if strings.Count(email, "@") != 1 || strings.ContainsAny(email, " \t\r\n") || strings.HasSuffix(email, ".") {
		return errors.New("invalid email format")
	}
	if err := validate.Var(email, "email"); err != nil {
		return errors.New("invalid email format")
	}
	return nil
}

// NormalizeFullName trims surrounding whitespace and collapses inner runs.
func NormalizeFullName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// ValidateFullName checks an already-normalised display name.
func ValidateFullName(name string) error {
	if name == "" {
		return errors.New("full name is required")
	}
	if utf8.RuneCountInString(name) > maxFullNameLength {
		return fmt.Errorf("full name must be at most %d characters", maxFullNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.New("full name contains invalid characters")
		}
	}
	return nil
}
