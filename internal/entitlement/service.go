package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/metrics"
)

// DefaultSweepInterval is used when no sweep interval is configured
const DefaultSweepInterval = 10 * time.Minute

// BotInvalidator drops cached bots of a workspace whose stored AI fields
// may have been pruned.
type BotInvalidator interface {
	InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error
}

// Service reads and changes workspace entitlements
type Service struct {
	workspaces  domain.WorkspaceRepository
	plans       domain.PlanRepository
	invalidator BotInvalidator
	now         func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithInvalidator registers a cache to clear after plan changes
func WithInvalidator(inv BotInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// NewService creates an entitlement service
func NewService(workspaces domain.WorkspaceRepository, plans domain.PlanRepository, opts ...Option) *Service {
	s := &Service{workspaces: workspaces, plans: plans, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time
func (s *Service) Now() time.Time {
	return s.now()
}

// Snapshot evaluates the workspace's entitlement now
func (s *Service) Snapshot(ctx context.Context, workspaceID uuid.UUID) (*Snapshot, error) {
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if ws == nil {
		return nil, domain.ErrNotFound
	}

	plans, err := s.plans.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return NewSnapshot(ws, plans, s.now()), nil
}

// CreatePlan validates and stores a plan. An active plan replaces the
// workspace's previous active plan.
func (s *Service) CreatePlan(ctx context.Context, input domain.PlanCreate) (*domain.Plan, error) {
	ws, err := s.workspaces.GetByID(ctx, input.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if ws == nil {
		return nil, domain.ErrNotFound
	}

	now := s.now()
	plan := &domain.Plan{
		ID:          uuid.New(),
		WorkspaceID: input.WorkspaceID,
		Bundle:      input.Bundle,
		Term:        input.Term,
		StartAt:     input.StartAt,
		EndAt:       input.EndAt,
		Active:      input.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if plan.StartAt.IsZero() {
		plan.StartAt = now
	}
	if plan.Term == domain.TermLifetime {
		plan.EndAt = nil
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	if plan.Active {
		s.invalidate(ctx, plan.WorkspaceID)
	}

	log.Info().
		Str("workspace_id", plan.WorkspaceID.String()).
		Str("plan_id", plan.ID.String()).
		Str("bundle", string(plan.Bundle)).
		Bool("active", plan.Active).
		Msg("Plan created")
	return plan, nil
}

// ActivatePlan makes the plan the workspace's only active plan
func (s *Service) ActivatePlan(ctx context.Context, planID uuid.UUID) (*domain.Plan, error) {
	plan, err := s.plans.Activate(ctx, planID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, plan.WorkspaceID)

	log.Info().
		Str("workspace_id", plan.WorkspaceID.String()).
		Str("plan_id", plan.ID.String()).
		Str("bundle", string(plan.Bundle)).
		Msg("Plan activated")
	return plan, nil
}

// DeactivatePlan clears the plan's active flag
func (s *Service) DeactivatePlan(ctx context.Context, planID uuid.UUID) error {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return domain.ErrNotFound
	}
	if err := s.plans.Deactivate(ctx, planID); err != nil {
		return err
	}
	s.invalidate(ctx, plan.WorkspaceID)
	return nil
}

// ListPlans returns the workspace's plans, newest start first
func (s *Service) ListPlans(ctx context.Context, workspaceID uuid.UUID) ([]domain.Plan, error) {
	plans, err := s.plans.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// SweepExpired deactivates LIMITED plans whose window has closed. It is
// idempotent.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.plans.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired plans: %w", err)
	}
	if n > 0 {
		metrics.PlansExpired.Add(float64(n))
		log.Info().Int64("count", n).Msg("Expired plans deactivated")
	}
	return n, nil
}

// RunSweeper sweeps expired plans every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Plan expiry sweeper started")
	if _, err := s.SweepExpired(ctx); err != nil {
		log.Error().Err(err).Msg("Plan sweep failed")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Plan expiry sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				log.Error().Err(err).Msg("Plan sweep failed")
			}
		}
	}
}

func (s *Service) invalidate(ctx context.Context, workspaceID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateWorkspace(ctx, workspaceID); err != nil {
		log.Warn().Err(err).Str("workspace_id", workspaceID.String()).Msg("Failed to invalidate bot cache")
	}
}
