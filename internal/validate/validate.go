// Package validate holds the field-level validators for user-submitted
// identity data.
package validate

import (
	"regexp"

	"github.com/carveframework/carve/infrastructure/errors"
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]{2,31}$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
)

const minPasswordLength = 8

// Username validates a username against the competition's identity grammar:
// starts with a letter, underscore, or hyphen, followed by 2-31 alphanumeric
// characters, underscores, or hyphens (3-32 characters total).
func Username(username string) error {
	if !usernameRegex.MatchString(username) {
		return errors.InvalidFormat("username", usernameRegex.String())
	}
	return nil
}

// Email validates an email address against a practical RFC-5322-ish grammar.
func Email(email string) error {
	if !emailRegex.MatchString(email) {
		return errors.InvalidFormat("email", emailRegex.String())
	}
	return nil
}

// Password validates that a password meets the minimum length requirement.
func Password(password string) error {
	if len(password) < minPasswordLength {
		return errors.OutOfRange("password", minPasswordLength, nil)
	}
	return nil
}
