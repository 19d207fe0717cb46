package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/redbot/internal/domain"
)

// EnquiryInput is the contact form left by a visitor
type EnquiryInput struct {
	Name  string `json:"name" validate:"max=255"`
	Phone string `json:"phone" validate:"max=32"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
}

// EnquiryService records visitor contact requests
type EnquiryService struct {
	enquiries domain.EnquiryRepository
}

// NewEnquiryService creates a new enquiry service
func NewEnquiryService(enquiries domain.EnquiryRepository) *EnquiryService {
	return &EnquiryService{enquiries: enquiries}
}

// Submit stores an enquiry for bot when the workspace has the form
// enabled and at least two contact fields are filled.
func (s *EnquiryService) Submit(ctx context.Context, bot *domain.Bot, ws *domain.Workspace, input EnquiryInput) (*domain.Enquiry, error) {
	if ws == nil || !ws.EnableEnquiryForm {
		return nil, domain.ErrEnquiryDisabled
	}

	e := &domain.Enquiry{
		ID:        uuid.New(),
		BotID:     bot.ID,
		Name:      strings.TrimSpace(input.Name),
		Phone:     strings.TrimSpace(input.Phone),
		Email:     strings.TrimSpace(input.Email),
		CreatedAt: time.Now(),
	}
	if e.FilledFields() < domain.MinEnquiryFields {
		return nil, domain.ErrEnquiryIncomplete
	}

	if err := s.enquiries.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create enquiry: %w", err)
	}
	return e, nil
}
