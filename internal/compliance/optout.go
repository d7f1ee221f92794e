// Package compliance holds the messaging rules every outbound template must satisfy.
package compliance

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// OptOutNotice is the exact phrase carriers expect on marketing SMS.
const OptOutNotice = "Reply STOP to unsubscribe"

// MaxTemplateLength bounds a template to ten concatenated SMS segments.
const MaxTemplateLength = 1600

var (
	// ErrEmptyTemplate is returned for blank message bodies.
	ErrEmptyTemplate = errors.New("compliance: message body is required")
	// ErrMissingOptOut is returned when a template lacks OptOutNotice.
	ErrMissingOptOut = errors.New("compliance: message must contain \"" + OptOutNotice + "\"")
	// ErrTemplateTooLong is returned when a template exceeds MaxTemplateLength runes.
	ErrTemplateTooLong = errors.New("compliance: message body is too long")
)

// ContainsOptOutNotice reports whether body carries the opt-out phrase verbatim.
func ContainsOptOutNotice(body string) bool {
	return strings.Contains(body, OptOutNotice)
}

// ValidateBody checks a one-off message: non-blank and within length.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyTemplate
	}
	if utf8.RuneCountInString(body) > MaxTemplateLength {
		return ErrTemplateTooLong
	}
	return nil
}

// ValidateTemplate checks a reusable outbound template. On top of
// ValidateBody it requires the opt-out notice.
func ValidateTemplate(body string) error {
	if err := ValidateBody(body); err != nil {
		return err
	}
	if !ContainsOptOutNotice(body) {
		return ErrMissingOptOut
	}
	return nil
}

// Personalize replaces the {first_name} placeholder.
func Personalize(template, firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "there"
	}
	return strings.ReplaceAll(template, "{first_name}", name)
}
