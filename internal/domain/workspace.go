package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode is a chat mode a bot can serve
type Mode string

const (
	ModeAI   Mode = "AI"
	ModeLive Mode = "LIVE"
	ModeQA   Mode = "QA"
)

// AllModes lists modes in display order
var AllModes = []Mode{ModeAI, ModeLive, ModeQA}

func (m Mode) Valid() bool {
	return m == ModeAI || m == ModeLive || m == ModeQA
}

// ParseMode normalizes a user-supplied mode string
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Workspace represents a tenant workspace
type Workspace struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Approved          bool      `json:"approved"`
	BotFooter         string    `json:"bot_footer,omitempty"`
	EnableEnquiryForm bool      `json:"enable_enquiry_form"`
	EnableResetButton bool      `json:"enable_reset_button"`
	DefaultBotMode    *Mode     `json:"default_bot_mode,omitempty"`
	WhatsAppEnabled   bool      `json:"whatsapp_enabled"`
	WhatsAppNumber    string    `json:"whatsapp_number,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// WorkspaceCreate represents workspace creation data
type WorkspaceCreate struct {
	Name              string `json:"name" validate:"required,max=255"`
	EnableEnquiryForm bool   `json:"enable_enquiry_form"`
	DefaultBotMode    *Mode  `json:"default_bot_mode,omitempty" validate:"omitempty,oneof=AI LIVE QA"`
	WhatsAppNumber    string `json:"whatsapp_number,omitempty" validate:"omitempty,max=32"`
}

// WorkspaceUpdate represents workspace settings changes
type WorkspaceUpdate struct {
	Name              *string `json:"name,omitempty" validate:"omitempty,max=255"`
	BotFooter         *string `json:"bot_footer,omitempty" validate:"omitempty,max=255"`
	EnableEnquiryForm *bool   `json:"enable_enquiry_form,omitempty"`
	EnableResetButton *bool   `json:"enable_reset_button,omitempty"`
	DefaultBotMode    *string `json:"default_bot_mode,omitempty" validate:"omitempty,oneof=AI LIVE QA NONE"`
	WhatsAppEnabled   *bool   `json:"whatsapp_enabled,omitempty"`
	WhatsAppNumber    *string `json:"whatsapp_number,omitempty" validate:"omitempty,max=32"`
}

// ContactNumber returns the messaging number shown to visitors, if enabled
func (w *Workspace) ContactNumber() (string, bool) {
	if w == nil || !w.WhatsAppEnabled {
		return "", false
	}
	n := strings.TrimSpace(w.WhatsAppNumber)
	return n, n != ""
}
