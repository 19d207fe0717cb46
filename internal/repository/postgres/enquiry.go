package postgres

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
func (r *EnquiryRepository) Create(ctx context.Context, enquiry *domain.Enquiry) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO enquiries (id, bot_id, name, phone, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		enquiry.ID,
		enquiry.BotID,
		enquiry.Name,
		enquiry.Phone,
		enquiry.Email,
		enquiry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create enquiry: %w", err)
	}
	return nil
}
