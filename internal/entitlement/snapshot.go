package entitlement

import (
	"time"

	"github.com/Rrens/redbot/internal/domain"
)

// Snapshot is the entitlement of a workspace evaluated at one instant.
// It lives for a single request.
type Snapshot struct {
	Workspace    *domain.Workspace
	Plan         *domain.Plan
	Capabilities Capabilities
	At           time.Time
	// Lapsed is set when the newest active-flagged plan is a LIMITED plan
	// whose window has already closed.
	Lapsed bool
}

// NewSnapshot evaluates the workspace's plans at now
func NewSnapshot(ws *domain.Workspace, plans []domain.Plan, now time.Time) *Snapshot {
	s := &Snapshot{Workspace: ws, At: now}
	s.Plan = CurrentPlan(plans, now)
	if s.Plan == nil {
		s.Lapsed = lapsed(plans, now)
		s.Capabilities = Capabilities{Available: []domain.Mode{}, Default: domain.ModeAI}
		return s
	}

	var pref *domain.Mode
	if ws != nil {
		pref = ws.DefaultBotMode
	}
	s.Capabilities = Resolve(s.Plan.Bundle, pref)
	return s
}

// Approved reports whether the workspace has been approved
func (s *Snapshot) Approved() bool {
	return s.Workspace != nil && s.Workspace.Approved
}

// Operational reports whether the workspace may serve visitors: approved
// with a currently active plan.
func (s *Snapshot) Operational() bool {
	return s.Approved() && s.Plan != nil
}

// Includes reports whether the current plan grants mode
func (s *Snapshot) Includes(mode domain.Mode) bool {
	return s.Plan != nil && s.Plan.Bundle.Includes(mode)
}

// Bundle returns the current bundle, or "" without a plan
func (s *Snapshot) Bundle() domain.Bundle {
	if s.Plan == nil {
		return ""
	}
	return s.Plan.Bundle
}

func lapsed(plans []domain.Plan, now time.Time) bool {
	var newest *domain.Plan
	for i := range plans {
		p := &plans[i]
		if !p.Active {
			continue
		}
		if newest == nil || p.StartAt.After(newest.StartAt) {
			newest = p
		}
	}
	return newest.Expired(now)
}
