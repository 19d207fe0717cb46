package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Plan invariants
	ErrActivePlanConflict = errors.New("workspace already has an active plan")
	ErrInvalidPlanWindow  = errors.New("limited plan requires end_at after start_at")
	ErrInvalidBundle      = errors.New("invalid plan bundle")
	ErrInvalidTerm        = errors.New("invalid plan term")

	// Bot invariants
	ErrAIFieldsRequired  = errors.New("ai provider, model and api key are required when the plan includes AI")
	ErrAIFieldsForbidden = errors.New("ai provider, model and api key must be empty when the plan excludes AI")
	ErrWorkspaceNotReady = errors.New("workspace must be approved and have an active plan")
	ErrInvalidMode       = errors.New("invalid bot mode")

	// Q&A tree
	ErrQACycle = errors.New("q&a parent would create a cycle")

	// Enquiries
	ErrEnquiryDisabled   = errors.New("enquiry form is disabled for this workspace")
	ErrEnquiryIncomplete = errors.New("enquiry needs at least two of name, phone, email")
)
