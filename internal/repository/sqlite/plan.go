package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
)

// PlanRepository handles plan data access
type PlanRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, workspace_id, bundle, term, start_at, end_at, active, created_at, updated_at`

func scanPlan(row rowScanner) (*domain.Plan, error) {
	var p domain.Plan
	var start, created, updated int64
	var end sql.NullInt64

	if err := row.Scan(&p.ID, &p.WorkspaceID, &p.Bundle, &p.Term, &start, &end, &p.Active, &created, &updated); err != nil {
		return nil, err
	}
	p.StartAt = fromMillis(start)
	p.EndAt = fromNullMillis(end)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

// Create stores a plan, deactivating siblings when it is inserted active
func (r *PlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if plan.Active {
			if _, err := tx.ExecContext(ctx,
				`UPDATE plans SET active = 0, updated_at = ? WHERE workspace_id = ? AND active = 1`,
				toMillis(plan.UpdatedAt), plan.WorkspaceID,
			); err != nil {
				return fmt.Errorf("failed to deactivate plans: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO plans (`+planColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.ID,
			plan.WorkspaceID,
			plan.Bundle,
			plan.Term,
			toMillis(plan.StartAt),
			toNullMillis(plan.EndAt),
			boolInt(plan.Active),
			toMillis(plan.CreatedAt),
			toMillis(plan.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrActivePlanConflict
			}
			return fmt.Errorf("failed to create plan: %w", err)
		}

		if plan.Active && !plan.Bundle.IncludesAI() {
			return clearBotAIFields(ctx, tx, plan.WorkspaceID)
		}
		return nil
	})
}

// GetByID retrieves a plan by ID
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	p, err := scanPlan(r.db.conn.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

// ListByWorkspace lists a workspace's plans, newest start first
func (r *PlanRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Plan, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE workspace_id = ?
		ORDER BY start_at DESC, created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// Activate makes the plan the only active one of its workspace
func (r *PlanRepository) Activate(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	var activated *domain.Plan
	now := time.Now().UTC()

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		plan, err := scanPlan(tx.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get plan: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE plans SET active = 0, updated_at = ? WHERE workspace_id = ? AND id <> ? AND active = 1`,
			toMillis(now), plan.WorkspaceID, plan.ID,
		); err != nil {
			return fmt.Errorf("failed to deactivate plans: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE plans SET active = 1, updated_at = ? WHERE id = ?`,
			toMillis(now), plan.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrActivePlanConflict
			}
			return fmt.Errorf("failed to activate plan: %w", err)
		}

		if !plan.Bundle.IncludesAI() {
			if err := clearBotAIFields(ctx, tx, plan.WorkspaceID); err != nil {
				return err
			}
		}

		plan.Active = true
		plan.UpdatedAt = fromMillis(toMillis(now))
		activated = plan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// Deactivate clears a plan's active flag
func (r *PlanRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE plans SET active = 0, updated_at = ? WHERE id = ?`,
		toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate plan: %w", err)
	}
	return requireRow(res)
}

// DeactivateExpired clears the active flag of LIMITED plans whose window
// closed before now.
func (r *PlanRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE plans SET active = 0, updated_at = ?
		WHERE active = 1 AND term = 'LIMITED' AND end_at IS NOT NULL AND end_at < ?`,
		toMillis(now), toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired plans: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func clearBotAIFields(ctx context.Context, tx *sql.Tx, workspaceID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bots
		SET ai_provider = NULL, ai_model = NULL, ai_api_key = NULL, updated_at = ?
		WHERE workspace_id = ?
			AND (ai_provider IS NOT NULL OR ai_model IS NOT NULL OR ai_api_key IS NOT NULL)`,
		toMillis(time.Now()), workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear bot AI fields: %w", err)
	}
	return nil
}
