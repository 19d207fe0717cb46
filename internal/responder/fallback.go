package responder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/llm"
)

const (
	switchSuggestion = " However, you may get better assistance by switching to our Live Chat or Q&A bot using the menu above."
	switcherTrigger  = " <span class='trigger-bot-switcher' style='display:none;'>TRIGGER_SWITCHER</span>"
	whatsAppLead     = " For further details, WhatsApp this number: "

	linkStyle = `style="color:#5A4FCF;text-decoration:underline;font-weight:600" rel="noopener noreferrer" target="_blank"`

	noContactFull = "I apologize, but I don't have specific contact information in my current knowledge base." + switchSuggestion + switcherTrigger
)

// FallbackMessage is the visitor-facing text for a failed generation call.
// It never carries upstream error bodies. FULL bundles are pointed at the
// other chat modes, and an enabled contact number is appended for every
// bundle.
func FallbackMessage(err error, ws *domain.Workspace, bundle domain.Bundle) string {
	msg := fallbackReason(err)
	if bundle == domain.BundleFull {
		msg += switchSuggestion + switcherTrigger
	}
	return msg + whatsAppSuffix(ws)
}

func fallbackReason(err error) string {
	var e *llm.Error
	if !errors.As(err, &e) {
		return "⚠️ Unexpected error occurred."
	}
	switch e.Kind {
	case llm.KindMissingKey:
		return "⚠️ No API key provided."
	case llm.KindUnsupported:
		return "⚠️ Unsupported or not-yet-implemented AI provider: " + e.Provider
	case llm.KindHTTP:
		return fmt.Sprintf("⚠️ AI service error (HTTP %d).", e.Status)
	case llm.KindNetwork:
		return "⚠️ AI service connection error."
	case llm.KindMalformed:
		return "⚠️ Received invalid response from AI service."
	default:
		return "⚠️ Unexpected error occurred."
	}
}

// whatsAppSuffix returns the contact-number sentence, or "" when the
// workspace has no enabled number.
func whatsAppSuffix(ws *domain.Workspace) string {
	number, ok := ws.ContactNumber()
	if !ok {
		return ""
	}
	clean := strings.NewReplacer(" ", "", "-", "").Replace(number)
	return whatsAppLead + fmt.Sprintf(
		`<a href="https://wa.me/%s" style="color:#5A4FCF;text-decoration:underline;font-weight:600" target="_blank">`+
			`<iconify-icon icon="logos:whatsapp-icon" style="vertical-align: middle; margin-right: 2px; font-size: 1.6em;"></iconify-icon>%s</a>`,
		strings.TrimPrefix(clean, "+"), number)
}
