package utils

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	letterRe = regexp.MustCompile(`[A-Za-z]`)
	digitRe  = regexp.MustCompile(`\d`)
)

// NormalizeEmail lowercases and trims an email address. All lookups and the
// unique index operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegister checks registration input and returns the first violation
// found, in field order, as the error surfaced to the client.
func ValidateRegister(name, email, password string) error {
	if n := utf8.RuneCountInString(name); n < 2 {
		return errors.New("name must be at least 2 characters")
	} else if n > 60 {
		return errors.New("name must be at most 60 characters")
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !letterRe.MatchString(password) {
		return errors.New("password must contain letters")
	}
	if !digitRe.MatchString(password) {
		return errors.New("password must contain numbers")
	}
	return nil
}

// ValidateLogin checks login input shape. Credential verification happens in
// the handler; this only rejects requests that cannot possibly match a user.
func ValidateLogin(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return errors.New("invalid email")
	}
	return nil
}
