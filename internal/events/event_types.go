package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventSLABreached         EventType = "sla_breached"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string          `json:"user_id"`
	Role   domain.UserRole `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignmentID string                `json:"assignment_id"`
	AgentID      string                `json:"agent_id"`
	Type         domain.AssignmentType `json:"assignment_type"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	AssignmentID    string `json:"assignment_id"`
	PreviousAgentID string `json:"previous_agent_id"`
	NewAgentID      string `json:"new_agent_id"`
	Reason          string `json:"reason,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	EscalationType domain.EscalationType `json:"escalation_type"`
	EscalatedBy    string                `json:"escalated_by"`
	Reason         string                `json:"reason"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	TrackingID      string                `json:"tracking_id"`
	Priority        domain.TicketPriority `json:"priority"`
	ResolutionDueAt time.Time             `json:"resolution_due_at"`
}
