package lifecycle

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// transitions is the authoritative table of valid status transitions.
// Directed: no implicit reverse edges.
var transitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusAssigned},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusEscalated},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusReopened},
	domain.TicketStatusClosed:     {domain.TicketStatusReopened},
	domain.TicketStatusReopened:   {domain.TicketStatusInProgress},
	domain.TicketStatusEscalated:  {domain.TicketStatusInProgress, domain.TicketStatusResolved},
}

// Listed reports whether current→target appears in the transition table,
// ignoring role gating.
func Listed(current, target domain.TicketStatus) bool {
	for _, candidate := range transitions[current] {
		if candidate == target {
			return true
		}
	}
	return false
}

// CanTransition reports whether the actor role may move a ticket from
// current to target. END_USER may only close a resolved ticket; AGENT and
// MANAGER may invoke any listed transition; ADMIN bypasses role gating for
// every listed transition.
func CanTransition(current, target domain.TicketStatus, role domain.UserRole) bool {
	if !Listed(current, target) {
		return false
	}
	switch role {
	case domain.RoleAdmin, domain.RoleAgent, domain.RoleManager:
		return true
	case domain.RoleEndUser:
		return current == domain.TicketStatusResolved && target == domain.TicketStatusClosed
	default:
		return false
	}
}

// ApplyTransition validates and applies a status transition, returning an
// updated copy of the ticket. Status, UpdatedAt and the transition-triggered
// side fields change together or not at all. The caller stages any assignee
// binding on the ticket before applying; entering ASSIGNED, IN_PROGRESS or
// ESCALATED without an assignee is rejected so the assignment invariant can
// never be violated by a transition.
func ApplyTransition(ticket domain.Ticket, target domain.TicketStatus, role domain.UserRole, reason string, now time.Time) (domain.Ticket, error) {
	if !Listed(ticket.Status, target) {
		return ticket, apperrors.NewInvalidTransition("status transition not allowed", map[string]any{
			"from": ticket.Status,
			"to":   target,
		})
	}
	if !CanTransition(ticket.Status, target, role) {
		return ticket, apperrors.NewForbidden("role not permitted for this transition")
	}
	if requiresAssignee(target) && (ticket.AssignedToUserID == nil || *ticket.AssignedToUserID == "") {
		return ticket, apperrors.NewInvalidTransition("transition requires an assigned agent", map[string]any{
			"from": ticket.Status,
			"to":   target,
		})
	}

	updated := ticket
	updated.Status = target
	updated.UpdatedAt = now

	switch target {
	case domain.TicketStatusAssigned:
		if updated.AssignedAt == nil {
			at := now
			updated.AssignedAt = &at
		}
	case domain.TicketStatusResolved:
		at := now
		updated.ResolvedAt = &at
	case domain.TicketStatusClosed:
		at := now
		updated.ClosedAt = &at
	case domain.TicketStatusReopened:
		// A freshly reopened ticket carries no assignee and no stale
		// resolution or escalation metadata.
		updated.AssignedToUserID = nil
		updated.AssignedAt = nil
		updated.ResolvedAt = nil
		updated.ClosedAt = nil
		updated.EscalatedToUserID = nil
		updated.EscalatedBy = nil
		updated.EscalationType = nil
		updated.EscalatedAt = nil
		updated.EscalationReason = nil
	}

	return updated, nil
}

func requiresAssignee(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusEscalated:
		return true
	}
	return false
}

// TargetsFrom returns the transitions listed for the given status, in table
// order. Used by handlers to advertise next actions.
func TargetsFrom(current domain.TicketStatus) []domain.TicketStatus {
	listed := transitions[current]
	out := make([]domain.TicketStatus, len(listed))
	copy(out, listed)
	return out
}
