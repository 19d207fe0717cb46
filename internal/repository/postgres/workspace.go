package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WorkspaceRepository handles workspace data access
type WorkspaceRepository struct {
	db *DB
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(db *DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

const workspaceColumns = `id, name, approved, bot_footer, enable_enquiry_form, enable_reset_button,
	default_bot_mode, whatsapp_enabled, whatsapp_number, created_at, updated_at`

// Create creates a new workspace
func (r *WorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) error {
	query := `
		INSERT INTO workspaces (` + workspaceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		workspace.ID,
		workspace.Name,
		workspace.Approved,
		workspace.BotFooter,
		workspace.EnableEnquiryForm,
		workspace.EnableResetButton,
		modePtrString(workspace.DefaultBotMode),
		workspace.WhatsAppEnabled,
		workspace.WhatsAppNumber,
		workspace.CreatedAt,
		workspace.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	return nil
}

// GetByID retrieves a workspace by ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`

	var workspace domain.Workspace
	var defaultMode *string

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&workspace.ID,
		&workspace.Name,
		&workspace.Approved,
		&workspace.BotFooter,
		&workspace.EnableEnquiryForm,
		&workspace.EnableResetButton,
		&defaultMode,
		&workspace.WhatsAppEnabled,
		&workspace.WhatsAppNumber,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	workspace.DefaultBotMode = stringModePtr(defaultMode)

	return &workspace, nil
}

// Update updates a workspace
func (r *WorkspaceRepository) Update(ctx context.Context, workspace *domain.Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $2, approved = $3, bot_footer = $4, enable_enquiry_form = $5,
			enable_reset_button = $6, default_bot_mode = $7, whatsapp_enabled = $8,
			whatsapp_number = $9, updated_at = $10
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		workspace.ID,
		workspace.Name,
		workspace.Approved,
		workspace.BotFooter,
		workspace.EnableEnquiryForm,
		workspace.EnableResetButton,
		modePtrString(workspace.DefaultBotMode),
		workspace.WhatsAppEnabled,
		workspace.WhatsAppNumber,
		workspace.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func modePtrString(m *domain.Mode) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}

func stringModePtr(s *string) *domain.Mode {
	if s == nil || *s == "" {
		return nil
	}
	m := domain.Mode(*s)
	return &m
}
