package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yukikurage/task-tracker-api/internal/constants"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	// Shape accepted at registration and profile edit.
	emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)
	// Shape that routes a login identifier to the email lookup.
	loginEmailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < constants.MinUsernameLength || n > constants.MaxUsernameLength {
		return ErrInvalidUsernameLength
	}
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsernameChars
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) > constants.MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// validatePassword enforces length plus one each of upper, lower, digit and symbol.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	// bcrypt refuses longer input.
	if len(password) > constants.MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return ErrPasswordTooWeak
	}
	return nil
}

func looksLikeEmail(login string) bool {
	return loginEmailPattern.MatchString(login)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
