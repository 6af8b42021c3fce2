// Package validate checks user input before it is sent anywhere.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// MinPasswordLength matches the auth service policy
const MinPasswordLength = 8

// specialChars is the set the auth service accepts as "special"
const specialChars = `!@#$%^&*(),.?":{}|<>`

var (
	ErrEmptyUsername    = errors.New("username is required")
	ErrEmptyPassword    = errors.New("password is required")
	ErrEmptyEmail       = errors.New("email is required")
	ErrInvalidEmail     = errors.New("email address is not valid")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordUpper    = errors.New("password must contain an uppercase letter")
	ErrPasswordLower    = errors.New("password must contain a lowercase letter")
	ErrPasswordDigit    = errors.New("password must contain a number")
	ErrPasswordSpecial  = errors.New("password must contain a special character (" + specialChars + ")")
)

// Credentials checks a login form
func Credentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// Password returns every unmet complexity rule joined into one error
func Password(password string) error {
	var errs []error
	if len([]rune(password)) < MinPasswordLength {
		errs = append(errs, ErrPasswordTooShort)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		errs = append(errs, ErrPasswordUpper)
	}
	if !hasLower {
		errs = append(errs, ErrPasswordLower)
	}
	if !hasDigit {
		errs = append(errs, ErrPasswordDigit)
	}
	if !hasSpecial {
		errs = append(errs, ErrPasswordSpecial)
	}
	return errors.Join(errs...)
}

// NewPassword checks a password and its confirmation
func NewPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	return Password(password)
}

// Email checks an address has a plausible shape
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return ErrInvalidEmail
	}
	return nil
}

// Registration is the sign-up form
type Registration struct {
	Username        string
	Email           string
	FullName        string
	Password        string
	ConfirmPassword string
}

// Check validates the whole form, username first
func (r Registration) Check() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	if err := Email(r.Email); err != nil {
		return err
	}
	return NewPassword(r.Password, r.ConfirmPassword)
}

// Messages flattens a joined validation error into lines
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, Messages(e)...)
		}
		return out
	}
	return []string{err.Error()}
}
