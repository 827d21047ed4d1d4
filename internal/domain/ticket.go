package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusReopened   TicketStatus = "REOPENED"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
)

// TicketPriority enumerates SLA urgency, most severe first.
type TicketPriority string

const (
	TicketPriorityCritical TicketPriority = "CRITICAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityLow      TicketPriority = "LOW"
)

// TicketCategory classifies the nature of the request.
type TicketCategory string

const (
	CategoryTechnical      TicketCategory = "TECHNICAL"
	CategoryBilling        TicketCategory = "BILLING"
	CategoryAccount        TicketCategory = "ACCOUNT"
	CategoryFeatureRequest TicketCategory = "FEATURE_REQUEST"
	CategoryBugReport      TicketCategory = "BUG_REPORT"
	CategoryOther          TicketCategory = "OTHER"
)

// EscalationType identifies the tier a ticket was escalated to.
type EscalationType string

const (
	EscalationTypeManager       EscalationType = "MANAGER"
	EscalationTypeSeniorAgent   EscalationType = "SENIOR_AGENT"
	EscalationTypeTechnicalTeam EscalationType = "TECHNICAL_TEAM"
)

// Ticket is the aggregate for support requests. Status, the timestamp side
// fields and the assignee binding are mutated only through validated
// lifecycle transitions, never by direct field edits.
type Ticket struct {
	ID               string
	TicketNumber     string
	CreatedByUserID  string
	AssignedToUserID *string
	Title            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	Category         TicketCategory
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	AssignedAt       *time.Time
	ResolvedAt       *time.Time
	ClosedAt         *time.Time

	EscalatedToUserID *string
	EscalatedBy       *string
	EscalationType    *EscalationType
	EscalatedAt       *time.Time
	EscalationReason  *string

	CommentCount    int
	AttachmentCount int
}

// Escalated reports whether the ticket has escalation metadata recorded.
func (t *Ticket) Escalated() bool {
	return t.Status == TicketStatusEscalated || t.EscalatedAt != nil
}

// Terminal reports whether the ticket reached a resolution state that
// freezes SLA tracking.
func (t *Ticket) Terminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed, TicketStatusReopened,
		TicketStatusEscalated:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityCritical, TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case CategoryTechnical, CategoryBilling, CategoryAccount,
		CategoryFeatureRequest, CategoryBugReport, CategoryOther:
		return true
	}
	return false
}

// ValidEscalationType reports whether e is a known escalation tier.
func ValidEscalationType(e EscalationType) bool {
	switch e {
	case EscalationTypeManager, EscalationTypeSeniorAgent, EscalationTypeTechnicalTeam:
		return true
	}
	return false
}

// PriorityRank orders priorities for display: CRITICAL first, unknown last.
func PriorityRank(p TicketPriority) int {
	switch p {
	case TicketPriorityCritical:
		return 0
	case TicketPriorityHigh:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 3
	default:
		return 4
	}
}
