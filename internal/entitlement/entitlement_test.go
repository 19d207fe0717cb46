package entitlement_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/repository"
	"github.com/Rrens/redbot/internal/repository/sqlite"
)

func modePtr(m domain.Mode) *domain.Mode { return &m }

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		bundle      domain.Bundle
		pref        *domain.Mode
		wantModes   []domain.Mode
		wantDefault domain.Mode
	}{
		{"full no preference", domain.BundleFull, nil, []domain.Mode{domain.ModeAI, domain.ModeLive, domain.ModeQA}, domain.ModeAI},
		{"full prefers qa", domain.BundleFull, modePtr(domain.ModeQA), []domain.Mode{domain.ModeAI, domain.ModeLive, domain.ModeQA}, domain.ModeQA},
		{"live_qa no preference", domain.BundleLiveQA, nil, []domain.Mode{domain.ModeLive, domain.ModeQA}, domain.ModeLive},
		{"live_qa prefers unavailable ai", domain.BundleLiveQA, modePtr(domain.ModeAI), []domain.Mode{domain.ModeLive, domain.ModeQA}, domain.ModeLive},
		{"ai_only", domain.BundleAIOnly, nil, []domain.Mode{domain.ModeAI}, domain.ModeAI},
		{"live_only prefers qa", domain.BundleLiveOnly, modePtr(domain.ModeQA), []domain.Mode{domain.ModeLive}, domain.ModeLive},
		{"qa_only", domain.BundleQAOnly, nil, []domain.Mode{domain.ModeQA}, domain.ModeQA},
		{"unknown bundle falls back to ai", domain.Bundle("GOLD"), nil, []domain.Mode{}, domain.ModeAI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := entitlement.Resolve(tt.bundle, tt.pref)
			assert.Equal(t, tt.wantModes, caps.Available)
			assert.Equal(t, tt.wantDefault, caps.Default)

			again := entitlement.Resolve(tt.bundle, tt.pref)
			assert.Equal(t, caps, again)
		})
	}
}

func TestCurrentPlan(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	oldEnd := now.AddDate(0, 0, -1)
	futureEnd := now.AddDate(0, 1, 0)

	expired := domain.Plan{ID: uuid.New(), Bundle: domain.BundleFull, Term: domain.TermLimited, Active: true, StartAt: now.AddDate(0, -1, 0), EndAt: &oldEnd}
	lifetime := domain.Plan{ID: uuid.New(), Bundle: domain.BundleAIOnly, Term: domain.TermLifetime, Active: true, StartAt: now.AddDate(-1, 0, 0)}
	inactive := domain.Plan{ID: uuid.New(), Bundle: domain.BundleQAOnly, Term: domain.TermLimited, Active: false, StartAt: now.AddDate(0, 0, -2), EndAt: &futureEnd}

	got := entitlement.CurrentPlan([]domain.Plan{lifetime, expired, inactive}, now)
	require.NotNil(t, got)
	assert.Equal(t, lifetime.ID, got.ID)

	assert.Nil(t, entitlement.CurrentPlan([]domain.Plan{expired, inactive}, now))
	assert.Nil(t, entitlement.CurrentPlan(nil, now))
}

func TestSnapshot(t *testing.T) {
	now := time.Now()
	ws := &domain.Workspace{ID: uuid.New(), Approved: true, DefaultBotMode: modePtr(domain.ModeLive)}
	plan := domain.Plan{Bundle: domain.BundleFull, Term: domain.TermLifetime, Active: true, StartAt: now}

	s := entitlement.NewSnapshot(ws, []domain.Plan{plan}, now)
	assert.True(t, s.Operational())
	assert.True(t, s.Includes(domain.ModeAI))
	assert.Equal(t, domain.ModeLive, s.Capabilities.Default)
	assert.Equal(t, domain.BundleFull, s.Bundle())

	ws.Approved = false
	assert.False(t, entitlement.NewSnapshot(ws, []domain.Plan{plan}, now).Operational())

	none := entitlement.NewSnapshot(&domain.Workspace{Approved: true}, nil, now)
	assert.False(t, none.Operational())
	assert.False(t, none.Includes(domain.ModeAI))
	assert.Empty(t, none.Capabilities.Available)
	assert.Equal(t, domain.Bundle(""), none.Bundle())
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "redbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLiteStore(db)
}

func seedWorkspace(t *testing.T, store *repository.Store) *domain.Workspace {
	t.Helper()
	now := time.Now().UTC()
	ws := &domain.Workspace{ID: uuid.New(), Name: "Acme", Approved: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Workspaces.Create(context.Background(), ws))
	return ws
}

func TestService_PlanLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ws := seedWorkspace(t, store)

	inv := &mockInvalidator{}
	inv.On("InvalidateWorkspace", mock.Anything, ws.ID).Return(nil)
	svc := entitlement.NewService(store.Workspaces, store.Plans, entitlement.WithInvalidator(inv))

	first, err := svc.CreatePlan(ctx, domain.PlanCreate{WorkspaceID: ws.ID, Bundle: domain.BundleFull, Term: domain.TermLifetime, Active: true})
	require.NoError(t, err)
	second, err := svc.CreatePlan(ctx, domain.PlanCreate{WorkspaceID: ws.ID, Bundle: domain.BundleLiveOnly, Term: domain.TermLifetime})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, ws.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Plan)
	assert.Equal(t, first.ID, snap.Plan.ID)

	_, err = svc.ActivatePlan(ctx, second.ID)
	require.NoError(t, err)

	plans, err := svc.ListPlans(ctx, ws.ID)
	require.NoError(t, err)
	active := 0
	for _, p := range plans {
		if p.Active {
			active++
			assert.Equal(t, second.ID, p.ID)
		}
	}
	assert.Equal(t, 1, active)

	snap, err = svc.Snapshot(ctx, ws.ID)
	require.NoError(t, err)
	assert.False(t, snap.Includes(domain.ModeAI))
	assert.Equal(t, domain.ModeLive, snap.Capabilities.Default)

	require.NoError(t, svc.DeactivatePlan(ctx, second.ID))
	snap, err = svc.Snapshot(ctx, ws.ID)
	require.NoError(t, err)
	assert.False(t, snap.Operational())

	inv.AssertNumberOfCalls(t, "InvalidateWorkspace", 3)
}

func TestService_CreatePlanRejectsBadWindow(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ws := seedWorkspace(t, store)
	svc := entitlement.NewService(store.Workspaces, store.Plans)

	start := time.Now()
	_, err := svc.CreatePlan(ctx, domain.PlanCreate{WorkspaceID: ws.ID, Bundle: domain.BundleFull, Term: domain.TermLimited, StartAt: start, EndAt: &start})
	assert.ErrorIs(t, err, domain.ErrInvalidPlanWindow)

	_, err = svc.CreatePlan(ctx, domain.PlanCreate{WorkspaceID: uuid.New(), Bundle: domain.BundleFull, Term: domain.TermLifetime})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Snapshot(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	ws := seedWorkspace(t, store)

	clock := time.Now().UTC()
	svc := entitlement.NewService(store.Workspaces, store.Plans, entitlement.WithClock(func() time.Time { return clock }))

	end := clock.Add(time.Hour)
	_, err := svc.CreatePlan(ctx, domain.PlanCreate{WorkspaceID: ws.ID, Bundle: domain.BundleAIOnly, Term: domain.TermLimited, StartAt: clock.Add(-time.Hour), EndAt: &end, Active: true})
	require.NoError(t, err)

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock = clock.Add(2 * time.Hour)
	snap, err := svc.Snapshot(ctx, ws.ID)
	require.NoError(t, err)
	assert.Nil(t, snap.Plan, "expired window is not current even before the sweep")

	n, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_RunSweeperStopsOnCancel(t *testing.T) {
	store := newStore(t)
	svc := entitlement.NewService(store.Workspaces, store.Plans)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunSweeper(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
