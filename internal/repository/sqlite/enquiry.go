package sqlite

import (
	"context"
	"fmt"

	"github.com/Rrens/redbot/internal/domain"
)

// EnquiryRepository stores visitor enquiries
type EnquiryRepository struct {
	db *DB
}

// NewEnquiryRepository creates a new enquiry repository
func NewEnquiryRepository(db *DB) *EnquiryRepository {
	return &EnquiryRepository{db: db}
}

// Create stores an enquiry
func (r *EnquiryRepository) Create(ctx context.Context, e *domain.Enquiry) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO enquiries (id, bot_id, name, phone, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.BotID, e.Name, e.Phone, e.Email, toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create enquiry: %w", err)
	}
	return nil
}
