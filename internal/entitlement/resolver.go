package entitlement

import (
	"sort"
	"time"

	"github.com/Rrens/redbot/internal/domain"
)

// CurrentPlan returns the plan granting access at now: among plans
// ordered by descending start, the first that is currently active.
func CurrentPlan(plans []domain.Plan, now time.Time) *domain.Plan {
	sorted := make([]domain.Plan, len(plans))
	copy(sorted, plans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartAt.After(sorted[j].StartAt)
	})
	for i := range sorted {
		if sorted[i].IsCurrentActive(now) {
			p := sorted[i]
			return &p
		}
	}
	return nil
}

// bundleDefaults is the mode a bundle opens in when the workspace has no
// usable preference.
var bundleDefaults = map[domain.Bundle]domain.Mode{
	domain.BundleFull:     domain.ModeAI,
	domain.BundleLiveQA:   domain.ModeLive,
	domain.BundleAIOnly:   domain.ModeAI,
	domain.BundleLiveOnly: domain.ModeLive,
	domain.BundleQAOnly:   domain.ModeQA,
}

// Capabilities are the chat modes a bot may serve
type Capabilities struct {
	Available []domain.Mode `json:"available_modes"`
	Default   domain.Mode   `json:"default_mode"`
}

// Has reports whether mode is available
func (c Capabilities) Has(mode domain.Mode) bool {
	for _, m := range c.Available {
		if m == mode {
			return true
		}
	}
	return false
}

// AvailableModes lists the modes a bundle grants in display order
func AvailableModes(bundle domain.Bundle) []domain.Mode {
	modes := make([]domain.Mode, 0, len(domain.AllModes))
	for _, m := range domain.AllModes {
		if bundle.Includes(m) {
			modes = append(modes, m)
		}
	}
	return modes
}

// Resolve computes the capabilities of a bundle given the workspace's
// preferred mode. The preference wins when the bundle grants it, then the
// bundle default, then AI.
func Resolve(bundle domain.Bundle, preference *domain.Mode) Capabilities {
	caps := Capabilities{Available: AvailableModes(bundle), Default: domain.ModeAI}

	if preference != nil && caps.Has(*preference) {
		caps.Default = *preference
		return caps
	}
	if m, ok := bundleDefaults[bundle]; ok {
		caps.Default = m
	}
	return caps
}
