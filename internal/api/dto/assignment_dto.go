package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ManualAssignRequest payload.
type ManualAssignRequest struct {
	TicketID string                 `json:"ticket_id"`
	AgentID  string                 `json:"agent_id"`
	Priority *domain.TicketPriority `json:"priority"`
	Notes    string                 `json:"notes"`
}

// AutoAssignRequest payload.
type AutoAssignRequest struct {
	TicketID string `json:"ticket_id"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	TicketID   string `json:"ticket_id"`
	NewAgentID string `json:"new_agent_id"`
	Reason     string `json:"reason"`
}

// AgentStatusRequest payload.
type AgentStatusRequest struct {
	Status domain.AgentStatus `json:"status"`
}

// AssignmentResponse is one assignment record.
type AssignmentResponse struct {
	ID                 string                  `json:"id"`
	TicketID           string                  `json:"ticket_id"`
	AgentID            string                  `json:"agent_id"`
	AssignedBy         string                  `json:"assigned_by"`
	Type               domain.AssignmentType   `json:"assignment_type"`
	PreviousAgentID    *string                 `json:"previous_agent_id,omitempty"`
	ReassignmentReason *string                 `json:"reassignment_reason,omitempty"`
	Notes              string                  `json:"notes,omitempty"`
	Status             domain.AssignmentStatus `json:"status"`
	AssignedAt         time.Time               `json:"assigned_at"`
	CompletedAt        *time.Time              `json:"completed_at,omitempty"`
}

// FromAssignment maps an assignment record.
func FromAssignment(a *domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                 a.ID,
		TicketID:           a.TicketID,
		AgentID:            a.AgentID,
		AssignedBy:         a.AssignedBy,
		Type:               a.Type,
		PreviousAgentID:    a.PreviousAgentID,
		ReassignmentReason: a.ReassignmentReason,
		Notes:              a.Notes,
		Status:             a.Status,
		AssignedAt:         a.AssignedAt,
		CompletedAt:        a.CompletedAt,
	}
}

// FromAssignments maps an assignment collection.
func FromAssignments(assignments []domain.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		out = append(out, FromAssignment(&assignments[i]))
	}
	return out
}

// WorkloadResponse reports an agent's workload with selection metadata.
type WorkloadResponse struct {
	AgentID          string             `json:"agent_id"`
	ActiveTickets    int                `json:"active_tickets"`
	TotalAssigned    int                `json:"total_assigned"`
	CompletedTickets int                `json:"completed_tickets"`
	Status           domain.AgentStatus `json:"status"`
	LastAssignedAt   *time.Time         `json:"last_assigned_at"`
	Recommended      bool               `json:"recommended"`
}

// FromWorkload maps a workload aggregate.
func FromWorkload(w *domain.AgentWorkload, recommended bool) WorkloadResponse {
	return WorkloadResponse{
		AgentID:          w.AgentID,
		ActiveTickets:    w.ActiveTickets,
		TotalAssigned:    w.TotalAssigned,
		CompletedTickets: w.CompletedTickets,
		Status:           w.Status,
		LastAssignedAt:   w.LastAssignedAt,
		Recommended:      recommended,
	}
}
