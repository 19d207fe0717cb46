package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
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
func (r *WorkspaceRepository) Create(ctx context.Context, w *domain.Workspace) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO workspaces (`+workspaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID,
		w.Name,
		boolInt(w.Approved),
		w.BotFooter,
		boolInt(w.EnableEnquiryForm),
		boolInt(w.EnableResetButton),
		modeNull(w.DefaultBotMode),
		boolInt(w.WhatsAppEnabled),
		w.WhatsAppNumber,
		toMillis(w.CreatedAt),
		toMillis(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetByID retrieves a workspace by ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	var w domain.Workspace
	var defaultMode sql.NullString
	var created, updated int64

	err := r.db.conn.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id).Scan(
		&w.ID,
		&w.Name,
		&w.Approved,
		&w.BotFooter,
		&w.EnableEnquiryForm,
		&w.EnableResetButton,
		&defaultMode,
		&w.WhatsAppEnabled,
		&w.WhatsAppNumber,
		&created,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	if defaultMode.Valid && defaultMode.String != "" {
		m := domain.Mode(defaultMode.String)
		w.DefaultBotMode = &m
	}
	w.CreatedAt = fromMillis(created)
	w.UpdatedAt = fromMillis(updated)
	return &w, nil
}

// Update updates a workspace
func (r *WorkspaceRepository) Update(ctx context.Context, w *domain.Workspace) error {
	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE workspaces
		SET name = ?, approved = ?, bot_footer = ?, enable_enquiry_form = ?, enable_reset_button = ?,
			default_bot_mode = ?, whatsapp_enabled = ?, whatsapp_number = ?, updated_at = ?
		WHERE id = ?`,
		w.Name,
		boolInt(w.Approved),
		w.BotFooter,
		boolInt(w.EnableEnquiryForm),
		boolInt(w.EnableResetButton),
		modeNull(w.DefaultBotMode),
		boolInt(w.WhatsAppEnabled),
		w.WhatsAppNumber,
		toMillis(w.UpdatedAt),
		w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return requireRow(res)
}

func modeNull(m *domain.Mode) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*m), Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
