package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bundle is the set of chat modes a plan grants
type Bundle string

const (
	BundleFull     Bundle = "FULL"
	BundleLiveQA   Bundle = "LIVE_QA"
	BundleAIOnly   Bundle = "AI_ONLY"
	BundleLiveOnly Bundle = "LIVE_ONLY"
	BundleQAOnly   Bundle = "QA_ONLY"
)

// Valid reports whether b is a known bundle
func (b Bundle) Valid() bool {
	switch b {
	case BundleFull, BundleLiveQA, BundleAIOnly, BundleLiveOnly, BundleQAOnly:
		return true
	}
	return false
}

func (b Bundle) IncludesAI() bool {
	return b == BundleFull || b == BundleAIOnly
}

func (b Bundle) IncludesLive() bool {
	return b == BundleFull || b == BundleLiveOnly || b == BundleLiveQA
}

func (b Bundle) IncludesQA() bool {
	return b == BundleFull || b == BundleQAOnly || b == BundleLiveQA
}

// Includes reports whether the bundle grants mode m
func (b Bundle) Includes(m Mode) bool {
	switch m {
	case ModeAI:
		return b.IncludesAI()
	case ModeLive:
		return b.IncludesLive()
	case ModeQA:
		return b.IncludesQA()
	}
	return false
}

// Term is the plan duration policy
type Term string

const (
	TermLifetime Term = "LIFETIME"
	TermLimited  Term = "LIMITED"
)

func (t Term) Valid() bool {
	return t == TermLifetime || t == TermLimited
}

// Plan is an entitlement record owned by a workspace
type Plan struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Bundle      Bundle     `json:"bundle"`
	Term        Term       `json:"term"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PlanCreate represents plan creation data
type PlanCreate struct {
	WorkspaceID uuid.UUID  `json:"workspace_id" validate:"required"`
	Bundle      Bundle     `json:"bundle" validate:"required,oneof=FULL LIVE_QA AI_ONLY LIVE_ONLY QA_ONLY"`
	Term        Term       `json:"term" validate:"required,oneof=LIFETIME LIMITED"`
	StartAt     time.Time  `json:"start_at" validate:"required"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Active      bool       `json:"active"`
}

// IsCurrentActive reports whether the plan grants access at now.
// A LIFETIME plan only needs the active flag; a LIMITED plan must also
// contain now in [StartAt, EndAt], both ends inclusive.
func (p *Plan) IsCurrentActive(now time.Time) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.Term == TermLifetime {
		return true
	}
	if p.EndAt == nil {
		return false
	}
	return !now.Before(p.StartAt) && !now.After(*p.EndAt)
}

// Expired reports whether a LIMITED plan's window has closed
func (p *Plan) Expired(now time.Time) bool {
	return p != nil && p.Term == TermLimited && p.EndAt != nil && now.After(*p.EndAt)
}

// Validate checks the write-time invariants of a plan
func (p *Plan) Validate() error {
	if !p.Bundle.Valid() {
		return ErrInvalidBundle
	}
	if !p.Term.Valid() {
		return ErrInvalidTerm
	}
	if p.Term == TermLimited {
		if p.EndAt == nil || !p.EndAt.After(p.StartAt) {
			return ErrInvalidPlanWindow
		}
	}
	return nil
}
