package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBotName is used when a bot is created without a name
const DefaultBotName = "Redbot"

// Appearance is the public, non-secret widget styling
type Appearance struct {
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	FontFamily     string `json:"font_family,omitempty"`
	WelcomeText    string `json:"welcome_text,omitempty"`
	AnimationSpeed string `json:"animation_speed,omitempty"`
	Position       string `json:"position,omitempty"`
}

// Bot is one embeddable chat endpoint addressed by its public key
type Bot struct {
	ID             uuid.UUID  `json:"id"`
	WorkspaceID    uuid.UUID  `json:"workspace_id"`
	Name           string     `json:"name"`
	PublicKey      string     `json:"public_key"`
	PreferredMode  Mode       `json:"preferred_mode"`
	AIProvider     string     `json:"ai_provider,omitempty"`
	AIModel        string     `json:"ai_model,omitempty"`
	EncryptedAIKey []byte     `json:"-"`
	AllowedDomains []string   `json:"allowed_domains"`
	Enabled        bool       `json:"enabled"`
	Appearance     Appearance `json:"appearance"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BotCreate represents bot creation data
type BotCreate struct {
	WorkspaceID    uuid.UUID  `json:"workspace_id" validate:"required"`
	Name           string     `json:"name" validate:"omitempty,max=255"`
	PreferredMode  Mode       `json:"preferred_mode" validate:"omitempty,oneof=AI LIVE QA"`
	AIProvider     string     `json:"ai_provider,omitempty" validate:"omitempty,max=50"`
	AIModel        string     `json:"ai_model,omitempty" validate:"omitempty,max=255"`
	AIKey          string     `json:"ai_api_key,omitempty"`
	AllowedDomains string     `json:"allowed_domains"`
	Appearance     Appearance `json:"appearance"`
}

// BotUpdate represents bot changes. An empty AIKey keeps the stored key.
type BotUpdate struct {
	Name           *string     `json:"name,omitempty" validate:"omitempty,max=255"`
	PreferredMode  *Mode       `json:"preferred_mode,omitempty" validate:"omitempty,oneof=AI LIVE QA"`
	AIProvider     *string     `json:"ai_provider,omitempty" validate:"omitempty,max=50"`
	AIModel        *string     `json:"ai_model,omitempty" validate:"omitempty,max=255"`
	AIKey          *string     `json:"ai_api_key,omitempty"`
	AllowedDomains *string     `json:"allowed_domains,omitempty"`
	Enabled        *bool       `json:"enabled,omitempty"`
	Appearance     *Appearance `json:"appearance,omitempty"`
}

// SecretCipher encrypts and decrypts secrets at rest
type SecretCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// NewPublicKey returns a fresh unguessable bot key
func NewPublicKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ParseAllowedDomains splits a comma or newline separated list into
// lowercased, de-duplicated hostnames.
func ParseAllowedDomains(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	seen := make(map[string]struct{}, len(fields))
	domains := make([]string, 0, len(fields))
	for _, f := range fields {
		d := strings.ToLower(strings.TrimSpace(f))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	return domains
}

// HasAnyAIField reports whether any AI-identifying field is set
func (b *Bot) HasAnyAIField() bool {
	return b.AIProvider != "" || b.AIModel != "" || len(b.EncryptedAIKey) > 0
}

// HasAllAIFields reports whether every AI-identifying field is set
func (b *Bot) HasAllAIFields() bool {
	return b.AIProvider != "" && b.AIModel != "" && len(b.EncryptedAIKey) > 0
}

// CheckAIFields enforces that AI fields are present iff the plan includes AI
func (b *Bot) CheckAIFields(includesAI bool) error {
	if includesAI && !b.HasAllAIFields() {
		return ErrAIFieldsRequired
	}
	if !includesAI && b.HasAnyAIField() {
		return ErrAIFieldsForbidden
	}
	return nil
}

// ClearAIFields drops the provider, model and key
func (b *Bot) ClearAIFields() {
	b.AIProvider = ""
	b.AIModel = ""
	b.EncryptedAIKey = nil
}

// WriteSecret stores the provider API key encrypted. An empty key clears it.
func (b *Bot) WriteSecret(c SecretCipher, apiKey string) error {
	if apiKey == "" {
		b.EncryptedAIKey = nil
		return nil
	}
	ct, err := c.Encrypt([]byte(apiKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}
	b.EncryptedAIKey = ct
	return nil
}

// ReadSecret returns the plaintext provider API key. Callers must not
// retain or log the result beyond a single provider call.
func (b *Bot) ReadSecret(c SecretCipher) (string, error) {
	if len(b.EncryptedAIKey) == 0 {
		return "", nil
	}
	pt, err := c.Decrypt(b.EncryptedAIKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt api key: %w", err)
	}
	return string(pt), nil
}
