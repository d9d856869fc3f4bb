package validator

import (
	"errors"
	"regexp"
	"unicode"
)

// Name validation errors
var (
	ErrInvalidTagFormat = errors.New("tag must contain only letters, numbers, hyphens and underscores")
	ErrTagEmpty         = errors.New("tag cannot be empty")
	ErrTagTooLong       = errors.New("tag is too long")

	ErrEventTypeEmpty   = errors.New("event type cannot be empty")
	ErrEventTypeTooLong = errors.New("event type is too long")
	ErrEventTypeControl = errors.New("event type must not contain control characters")
)

// Limits used by the coordinator
const (
	MaxTagLength       = 64
	MaxEventTypeLength = 256
)

var tagValidationRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateTag checks a satellite tag. Tags travel in URL query strings and
// are folded into event type names, so the alphabet is kept small.
func ValidateTag(tag string, maxLength int) error {
	if tag == "" {
		return ErrTagEmpty
	}

	if len(tag) > maxLength {
		return ErrTagTooLong
	}

	if !tagValidationRegex.MatchString(tag) {
		return ErrInvalidTagFormat
	}

	return nil
}

// ValidateEventType checks an event type received from outside the
// process. Event types are otherwise opaque.
func ValidateEventType(t string, maxLength int) error {
	if t == "" {
		return ErrEventTypeEmpty
	}
	if len(t) > maxLength {
		return ErrEventTypeTooLong
	}
	for _, r := range t {
		if unicode.IsControl(r) {
			return ErrEventTypeControl
		}
	}
	return nil
}
