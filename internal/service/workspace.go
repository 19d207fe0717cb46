package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/redbot/internal/domain"
)

// WorkspaceService handles workspace operations
type WorkspaceService struct {
	workspaces domain.WorkspaceRepository
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(workspaces domain.WorkspaceRepository) *WorkspaceService {
	return &WorkspaceService{workspaces: workspaces}
}

// Create creates a workspace awaiting approval
func (s *WorkspaceService) Create(ctx context.Context, input domain.WorkspaceCreate) (*domain.Workspace, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}
	if input.DefaultBotMode != nil && !input.DefaultBotMode.Valid() {
		return nil, domain.ErrInvalidMode
	}

	now := time.Now()
	ws := &domain.Workspace{
		ID:                uuid.New(),
		Name:              name,
		EnableEnquiryForm: input.EnableEnquiryForm,
		EnableResetButton: true,
		DefaultBotMode:    input.DefaultBotMode,
		WhatsAppNumber:    strings.TrimSpace(input.WhatsAppNumber),
		WhatsAppEnabled:   strings.TrimSpace(input.WhatsAppNumber) != "",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.workspaces.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return ws, nil
}

// GetByID retrieves a workspace
func (s *WorkspaceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	ws, err := s.workspaces.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if ws == nil {
		return nil, domain.ErrNotFound
	}
	return ws, nil
}

// SetApproved approves or revokes a workspace
func (s *WorkspaceService) SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*domain.Workspace, error) {
	ws, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ws.Approved = approved
	ws.UpdatedAt = time.Now()
	if err := s.workspaces.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}
	return ws, nil
}

// Update applies settings changes. A default bot mode of "NONE" clears
// the preference.
func (s *WorkspaceService) Update(ctx context.Context, id uuid.UUID, input domain.WorkspaceUpdate) (*domain.Workspace, error) {
	ws, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" {
			ws.Name = name
		}
	}
	if input.BotFooter != nil {
		ws.BotFooter = strings.TrimSpace(*input.BotFooter)
	}
	if input.EnableEnquiryForm != nil {
		ws.EnableEnquiryForm = *input.EnableEnquiryForm
	}
	if input.EnableResetButton != nil {
		ws.EnableResetButton = *input.EnableResetButton
	}
	if input.DefaultBotMode != nil {
		raw := strings.ToUpper(strings.TrimSpace(*input.DefaultBotMode))
		if raw == "" || raw == "NONE" {
			ws.DefaultBotMode = nil
		} else {
			mode, ok := domain.ParseMode(raw)
			if !ok {
				return nil, domain.ErrInvalidMode
			}
			ws.DefaultBotMode = &mode
		}
	}
	if input.WhatsAppEnabled != nil {
		ws.WhatsAppEnabled = *input.WhatsAppEnabled
	}
	if input.WhatsAppNumber != nil {
		ws.WhatsAppNumber = strings.TrimSpace(*input.WhatsAppNumber)
	}

	ws.UpdatedAt = time.Now()
	if err := s.workspaces.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}
	return ws, nil
}
