package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []string              `json:"tags"`
}

// UpdateTicketRequest payload; nil fields are left unchanged.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Tags        []string               `json:"tags"`
}

// StatusChangeRequest payload. ExpectedStatus carries the status the client
// last rendered; the transition is rejected as stale when it no longer
// matches.
type StatusChangeRequest struct {
	Status         domain.TicketStatus  `json:"status"`
	Reason         string               `json:"reason"`
	ExpectedStatus *domain.TicketStatus `json:"expected_status"`
}

// PriorityChangeRequest payload.
type PriorityChangeRequest struct {
	Priority domain.TicketPriority `json:"priority"`
	Reason   string                `json:"reason"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID               string                `json:"id"`
	TicketNumber     string                `json:"ticket_number"`
	CreatedByUserID  string                `json:"created_by_user_id"`
	AssignedToUserID *string               `json:"assigned_to_user_id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	Category         domain.TicketCategory `json:"category"`
	Tags             []string              `json:"tags"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	AssignedAt       *time.Time            `json:"assigned_at"`
	ResolvedAt       *time.Time            `json:"resolved_at"`
	ClosedAt         *time.Time            `json:"closed_at"`

	EscalatedToUserID *string                `json:"escalated_to_user_id,omitempty"`
	EscalatedBy       *string                `json:"escalated_by,omitempty"`
	EscalationType    *domain.EscalationType `json:"escalation_type,omitempty"`
	EscalatedAt       *time.Time             `json:"escalated_at,omitempty"`
	EscalationReason  *string                `json:"escalation_reason,omitempty"`

	CommentCount    int `json:"comment_count"`
	AttachmentCount int `json:"attachment_count"`

	NextStatuses []domain.TicketStatus `json:"next_statuses,omitempty"`
}

// FromTicket maps a domain ticket to its response shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		TicketNumber:      t.TicketNumber,
		CreatedByUserID:   t.CreatedByUserID,
		AssignedToUserID:  t.AssignedToUserID,
		Title:             t.Title,
		Description:       t.Description,
		Status:            t.Status,
		Priority:          t.Priority,
		Category:          t.Category,
		Tags:              t.Tags,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		AssignedAt:        t.AssignedAt,
		ResolvedAt:        t.ResolvedAt,
		ClosedAt:          t.ClosedAt,
		EscalatedToUserID: t.EscalatedToUserID,
		EscalatedBy:       t.EscalatedBy,
		EscalationType:    t.EscalationType,
		EscalatedAt:       t.EscalatedAt,
		EscalationReason:  t.EscalationReason,
		CommentCount:      t.CommentCount,
		AttachmentCount:   t.AttachmentCount,
	}
}

// FromTickets maps a ticket collection.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, FromTicket(&tickets[i]))
	}
	return out
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID          string                  `json:"id"`
	TicketID    string                  `json:"ticket_id"`
	ChangedBy   *string                 `json:"changed_by"`
	ChangedRole domain.UserRole         `json:"changed_role"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// FromHistory maps audit entries.
func FromHistory(entries []domain.TicketHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryResponse{
			ID:          e.ID,
			TicketID:    e.TicketID,
			ChangedBy:   e.ChangedBy,
			ChangedRole: e.ChangedRole,
			ChangeType:  e.ChangeType,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
