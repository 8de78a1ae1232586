// Package validate holds input checks shared by the HTTP handlers and the
// catalog loader.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength      int            // in runes, 0 = no minimum
	MaxLength      int            // in runes, 0 = no maximum
	AllowedPattern *regexp.Regexp // optional
	AllowEmpty     bool
	TrimSpace      bool
}

// String validates s against constraints and returns it, trimmed if
// TrimSpace is set.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidCharacters)
	}
	length := utf8.RuneCountInString(s)
	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}
	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}
	return s, nil
}

// MaxSearchQueryLength bounds product search terms.
const MaxSearchQueryLength = 100

// SearchQuery validates a product search term: optional, trimmed, at most
// MaxSearchQueryLength characters and free of control characters.
func SearchQuery(q string) (string, error) {
	q, err := String(q, StringConstraints{
		MaxLength:  MaxSearchQueryLength,
		AllowEmpty: true,
		TrimSpace:  true,
	})
	if err != nil {
		return "", err
	}
	if strings.ContainsFunc(q, isControl) {
		return "", fmt.Errorf("%w: control characters", ErrInvalidCharacters)
	}
	return q, nil
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.\-]+$`)

// Username validates an account name: 2-30 letters, digits, '_', '.' or '-'.
// Hangul and other letters are allowed.
func Username(name string) (string, error) {
	return String(name, StringConstraints{
		MinLength:      2,
		MaxLength:      30,
		AllowedPattern: usernamePattern,
		TrimSpace:      true,
	})
}
