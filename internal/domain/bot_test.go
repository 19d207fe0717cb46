package domain_test

import (
	"testing"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllowedDomains(t *testing.T) {
	got := domain.ParseAllowedDomains("Example.com, shop.example.com\n\nexample.com\r\n .Other.org ")
	assert.Equal(t, []string{"example.com", "shop.example.com", ".other.org"}, got)

	assert.Empty(t, domain.ParseAllowedDomains(""))
	assert.Empty(t, domain.ParseAllowedDomains(" , \n"))
}

func TestNewPublicKey(t *testing.T) {
	a := domain.NewPublicKey()
	b := domain.NewPublicKey()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestBot_CheckAIFields(t *testing.T) {
	full := &domain.Bot{AIProvider: "openai", AIModel: "gpt-4o", EncryptedAIKey: []byte{1}}
	partial := &domain.Bot{AIProvider: "openai"}
	empty := &domain.Bot{}

	assert.NoError(t, full.CheckAIFields(true))
	assert.ErrorIs(t, partial.CheckAIFields(true), domain.ErrAIFieldsRequired)
	assert.ErrorIs(t, empty.CheckAIFields(true), domain.ErrAIFieldsRequired)

	assert.NoError(t, empty.CheckAIFields(false))
	assert.ErrorIs(t, partial.CheckAIFields(false), domain.ErrAIFieldsForbidden)

	full.ClearAIFields()
	assert.NoError(t, full.CheckAIFields(false))
}

func TestBot_SecretAccessors(t *testing.T) {
	enc, err := security.NewEncryptorFromSecret("bot-secret-test", "ai-key")
	require.NoError(t, err)

	bot := &domain.Bot{ID: uuid.New()}
	require.NoError(t, bot.WriteSecret(enc, "sk-live-123"))
	assert.NotContains(t, string(bot.EncryptedAIKey), "sk-live-123")

	got, err := bot.ReadSecret(enc)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", got)

	require.NoError(t, bot.WriteSecret(enc, ""))
	assert.Nil(t, bot.EncryptedAIKey)
	got, err = bot.ReadSecret(enc)
	require.NoError(t, err)
	assert.Empty(t, got)
}
