package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinEnquiryFields is the number of non-empty contact fields required
const MinEnquiryFields = 2

// Enquiry is contact information left by a visitor
type Enquiry struct {
	ID        uuid.UUID `json:"id"`
	BotID     uuid.UUID `json:"bot_id"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FilledFields counts non-blank contact fields
func (e *Enquiry) FilledFields() int {
	n := 0
	for _, f := range []string{e.Name, e.Phone, e.Email} {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n
}
