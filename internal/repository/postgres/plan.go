package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

const activePlanIndex = "plans_one_active_per_workspace"

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(
		&p.ID,
		&p.WorkspaceID,
		&p.Bundle,
		&p.Term,
		&p.StartAt,
		&p.EndAt,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a plan. An active plan is inserted in the same
// transaction that deactivates the workspace's other plans.
func (r *PlanRepository) Create(ctx context.Context, plan *domain.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		if plan.Active {
			if err := lockWorkspace(ctx, tx, plan.WorkspaceID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`UPDATE plans SET active = FALSE, updated_at = $2 WHERE workspace_id = $1 AND active`,
				plan.WorkspaceID, plan.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to deactivate plans: %w", err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO plans (`+planColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			plan.ID,
			plan.WorkspaceID,
			plan.Bundle,
			plan.Term,
			plan.StartAt,
			plan.EndAt,
			plan.Active,
			plan.CreatedAt,
			plan.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, activePlanIndex) {
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
	plan, err := scanPlan(r.db.Pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListByWorkspace lists a workspace's plans, newest start first
func (r *PlanRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.Plan, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE workspace_id = $1
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

	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		plan, err := scanPlan(tx.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get plan: %w", err)
		}

		// Serializes concurrent activations within one workspace.
		if err := lockWorkspace(ctx, tx, plan.WorkspaceID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE plans SET active = FALSE, updated_at = $3 WHERE workspace_id = $1 AND id <> $2 AND active`,
			plan.WorkspaceID, plan.ID, now,
		); err != nil {
			return fmt.Errorf("failed to deactivate plans: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE plans SET active = TRUE, updated_at = $2 WHERE id = $1`,
			plan.ID, now,
		); err != nil {
			if isUniqueViolation(err, activePlanIndex) {
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
		plan.UpdatedAt = now
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
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE plans SET active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeactivateExpired clears the active flag of LIMITED plans whose window
// closed before now.
func (r *PlanRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE plans SET active = FALSE, updated_at = $1
		WHERE active AND term = 'LIMITED' AND end_at IS NOT NULL AND end_at < $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired plans: %w", err)
	}
	return tag.RowsAffected(), nil
}

func lockWorkspace(ctx context.Context, tx pgx.Tx, workspaceID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM workspaces WHERE id = $1 FOR UPDATE`, workspaceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	return nil
}

func clearBotAIFields(ctx context.Context, tx pgx.Tx, workspaceID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE bots
		SET ai_provider = NULL, ai_model = NULL, ai_api_key = NULL, updated_at = NOW()
		WHERE workspace_id = $1
			AND (ai_provider IS NOT NULL OR ai_model IS NOT NULL OR ai_api_key IS NOT NULL)`,
		workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear bot AI fields: %w", err)
	}
	return nil
}
