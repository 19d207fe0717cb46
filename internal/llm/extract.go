package llm

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// FirstString returns the first non-empty string found at paths, in order.
// Providers drift in response shape, so each adapter lists the places its
// answer has been seen.
func FirstString(body []byte, paths ...string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON response")
	}
	for _, path := range paths {
		r := gjson.GetBytes(body, path)
		if r.Type == gjson.String && r.String() != "" {
			return r.String(), nil
		}
	}
	return "", ErrNoAnswer
}
