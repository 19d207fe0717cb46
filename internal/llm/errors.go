package llm

import (
	"errors"
	"fmt"
)

// Kind classifies a failed generation call
type Kind string

const (
	KindMissingKey  Kind = "missing_key"
	KindUnsupported Kind = "unsupported"
	KindHTTP        Kind = "http"
	KindNetwork     Kind = "network"
	KindMalformed   Kind = "malformed"
	KindUnexpected  Kind = "unexpected"
)

// Error describes a failed generation call. Body is kept for server-side
// logs only.
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: upstream returned HTTP %d", e.Provider, e.Status)
	case KindUnsupported:
		return fmt.Sprintf("unsupported provider: %s", e.Provider)
	case KindMissingKey:
		return fmt.Sprintf("%s: no API key", e.Provider)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, KindUnexpected for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// ErrNoAnswer is returned by extractors when no known path holds text
var ErrNoAnswer = errors.New("no answer field in response")
