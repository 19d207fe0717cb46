package logging_test

import (
	"strings"
	"testing"

	"github.com/Rrens/redbot/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	assert.Equal(t, "", logging.Redact(""))
	assert.Equal(t, "****", logging.Redact("short"))
	assert.Equal(t, "sk-p****", logging.Redact("sk-proj-verysecretvalue"))
	assert.NotContains(t, logging.Redact("sk-proj-verysecretvalue"), "secret")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", logging.Truncate([]byte("abc"), 10))

	got := logging.Truncate([]byte(strings.Repeat("x", 20)), 5)
	assert.Equal(t, "xxxxx...(truncated)", got)
}
