package security

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageRunes bounds visitor and agent message length
const MaxMessageRunes = 4000

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{1,128}$`)

// MessageValidator screens visitor-supplied chat text before it is stored
// or echoed into widgets.
type MessageValidator struct {
	blockedPatterns []*regexp.Regexp
	maxRunes        int
}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	patterns := []string{
		`(?i)<\s*script\b`,
		`(?i)<\s*iframe\b`,
		`(?i)<\s*object\b`,
		`(?i)\bjavascript\s*:`,
		`(?i)\bon(error|load|click|mouseover)\s*=`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}

	return &MessageValidator{blockedPatterns: compiled, maxRunes: MaxMessageRunes}
}

// ValidationError represents a rejected message
type ValidationError struct {
	Message string
	Pattern string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks that text is non-empty, bounded, and free of markup
// that would execute in the widget.
func (v *MessageValidator) Validate(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ValidationError{Message: "message is empty"}
	}
	if !utf8.ValidString(text) {
		return &ValidationError{Message: "message is not valid UTF-8"}
	}
	if utf8.RuneCountInString(text) > v.maxRunes {
		return &ValidationError{Message: "message is too long"}
	}

	for _, pattern := range v.blockedPatterns {
		if pattern.MatchString(text) {
			return &ValidationError{
				Message: "message contains blocked markup",
				Pattern: pattern.String(),
			}
		}
	}

	return nil
}

// Normalize trims text and drops control characters other than newlines and tabs
func (v *MessageValidator) Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(text))
}

// ValidateAndNormalize validates and normalizes text in one step
func (v *MessageValidator) ValidateAndNormalize(text string) (string, error) {
	text = v.Normalize(text)
	if err := v.Validate(text); err != nil {
		return "", err
	}
	return text, nil
}

// ValidSessionID reports whether a client-supplied session identifier is acceptable
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}
