package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SLAResponse reports a tracking with its current classification.
type SLAResponse struct {
	TicketID           string                `json:"ticket_id"`
	Priority           domain.TicketPriority `json:"priority"`
	ResponseDueAt      time.Time             `json:"response_due_at"`
	ResolutionDueAt    time.Time             `json:"resolution_due_at"`
	ResponseBreached   bool                  `json:"response_breached"`
	ResolutionBreached bool                  `json:"resolution_breached"`
	Status             domain.SLAStatus      `json:"status"`
	RemainingSeconds   int64                 `json:"remaining_seconds"`
}

// FromTracking maps a tracking with its live classification and remaining
// time.
func FromTracking(t *domain.SLATracking, status domain.SLAStatus, remaining time.Duration) SLAResponse {
	return SLAResponse{
		TicketID:           t.TicketID,
		Priority:           t.Priority,
		ResponseDueAt:      t.ResponseDueAt,
		ResolutionDueAt:    t.ResolutionDueAt,
		ResponseBreached:   t.ResponseBreached,
		ResolutionBreached: t.ResolutionBreached,
		Status:             status,
		RemainingSeconds:   int64(remaining.Seconds()),
	}
}
