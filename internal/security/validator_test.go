package security_test

import (
	"strings"
	"testing"

	"github.com/Rrens/redbot/internal/security"
)

func TestMessageValidator_Validate(t *testing.T) {
	validator := security.NewMessageValidator()

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain question", "what is your refund policy", false},
		{"with url", "see https://example.com/pricing please", false},
		{"with newline", "line one\nline two", false},
		{"mentions script word", "is there a script for onboarding?", false},

		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("a", security.MaxMessageRunes+1), true},
		{"script tag", "<script>alert(1)</script>", true},
		{"iframe", "<iframe src=x>", true},
		{"javascript url", "click javascript:alert(1)", true},
		{"event handler", `<img src=x onerror=alert(1)>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageValidator_Normalize(t *testing.T) {
	validator := security.NewMessageValidator()

	got, err := validator.ValidateAndNormalize("  hello\x00 there\x07\n ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q", got)
	}

	if _, err := validator.ValidateAndNormalize("\x00\x01"); err == nil {
		t.Error("expected control-only message to be rejected")
	}
}

func TestValidSessionID(t *testing.T) {
	valid := []string{"abc123", "sess_2f9c-1a", "visitor:42.1"}
	invalid := []string{"", "has space", "semi;colon", strings.Repeat("x", 129)}

	for _, id := range valid {
		if !security.ValidSessionID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	for _, id := range invalid {
		if security.ValidSessionID(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}
