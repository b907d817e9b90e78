// Package validation holds input rules shared by the services and the admin commands.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxGroupTitle  = 200
	MaxGroupSlug   = 100
	MaxUsername    = 150
	MinPasswordLen = 8
	MaxPasswordLen = 128
	MaxPostText    = 10000
	MaxCommentText = 2000
)

var (
	slugRegex     = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_.-]*[A-Za-z0-9])?$`)
)

// Route segments a group slug may not shadow.
var reservedSlugs = map[string]struct{}{
	"admin":   {},
	"auth":    {},
	"create":  {},
	"follow":  {},
	"media":   {},
	"metrics": {},
	"swagger": {},
	"ws":      {},
}

// ValidateGroupSlug validates slug format, length and reserved names.
func ValidateGroupSlug(slug string) error {
	if slug == "" {
		return errors.New("slug is required")
	}
	if len(slug) > MaxGroupSlug {
		return fmt.Errorf("slug must be at most %d characters", MaxGroupSlug)
	}
	if !slugRegex.MatchString(slug) {
		return errors.New("slug may contain only lowercase letters, digits, hyphens and underscores")
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return errors.New("slug is reserved")
	}
	return nil
}

// ValidateGroupTitle requires a non-blank title of bounded length.
func ValidateGroupTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > MaxGroupTitle {
		return fmt.Errorf("title must be at most %d characters", MaxGroupTitle)
	}
	return nil
}

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > MaxUsername {
		return fmt.Errorf("username must be 3-%d characters", MaxUsername)
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may contain letters, digits and . _ - and must start and end with a letter or digit")
	}
	return nil
}

// ValidateEmail accepts a bare address of at most 254 characters.
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("email must be at most 254 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email is not a valid address")
	}
	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return errors.New("email domain is not valid")
	}
	return nil
}

// ValidatePassword requires a bounded length with at least one letter and one digit.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters", MinPasswordLen, MaxPasswordLen)
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return errors.New("password must contain a letter and a digit")
	}
	return nil
}

// NormalizeText trims surrounding whitespace and rejects empty or oversized bodies.
func NormalizeText(field, text string, max int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s must not be empty", field)
	}
	if utf8.RuneCountInString(text) > max {
		return "", fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return text, nil
}
