package dto

import "github.com/spec-kit/support-desk/internal/domain"

// EscalateRequest payload. The reason is mandatory and must be substantial
// enough for a manager to triage from.
type EscalateRequest struct {
	Reason         string                `json:"reason"`
	EscalationType domain.EscalationType `json:"escalation_type"`
}
