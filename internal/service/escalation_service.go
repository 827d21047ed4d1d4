package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/lifecycle"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/views"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Escalation reasons shorter than this are rejected; managers triage from
// the reason text alone.
const minEscalationReasonLen = 20

// EscalationQueue is the durable queue surfacing escalated tickets to
// managers. Satisfied by persistence.Redis.
type EscalationQueue interface {
	PushEscalation(ctx context.Context, ticketID string) error
	PendingEscalations(ctx context.Context, limit int64) ([]string, error)
	AckEscalation(ctx context.Context, ticketID string) error
}

// EscalationService raises tickets to the manager queue. Escalation is a
// one-shot per lifecycle: an escalated ticket cannot be escalated again
// until a reopen clears its escalation metadata.
type EscalationService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	queue      EscalationQueue
	dispatcher events.Dispatcher
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Queue       EscalationQueue
	Dispatcher  events.Dispatcher
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
	}
}

// Escalate raises a ticket. Agents may escalate their own assigned or
// in-progress tickets; managers any. A ticket still parked at ASSIGNED is
// pulled through IN_PROGRESS first so every step is a listed transition.
func (s *EscalationService) Escalate(ctx context.Context, actor Actor, ticketID, reason string, escalationType domain.EscalationType) (*domain.Ticket, error) {
	if actor.Role != domain.RoleAgent && actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("only agents and managers may escalate")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < minEscalationReasonLen {
		return nil, apperrors.NewValidationError("escalation reason too short", map[string]any{
			"min_length": minEscalationReasonLen,
		})
	}
	if escalationType == "" {
		escalationType = domain.EscalationTypeManager
	}
	if !domain.ValidEscalationType(escalationType) {
		return nil, apperrors.NewValidationError("unknown escalation type", map[string]any{"escalation_type": escalationType})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if actor.Role == domain.RoleAgent {
		if ticket.AssignedToUserID == nil || *ticket.AssignedToUserID != actor.ID {
			return nil, apperrors.NewForbidden("agents may only escalate their own tickets")
		}
	}
	if ticket.Escalated() {
		return nil, apperrors.NewAlreadyEscalated(ticketID)
	}
	if ticket.Status != domain.TicketStatusAssigned && ticket.Status != domain.TicketStatusInProgress {
		return nil, apperrors.NewNotEscalatable("ticket is not in an escalatable state", map[string]any{
			"status": ticket.Status,
		})
	}

	now := time.Now()
	oldStatus := ticket.Status
	working := *ticket
	if working.Status == domain.TicketStatusAssigned {
		working, err = lifecycle.ApplyTransition(working, domain.TicketStatusInProgress, actor.Role, reason, now)
		if err != nil {
			return nil, err
		}
	}

	actorID := actor.ID
	working.EscalatedBy = &actorID
	working.EscalationType = &escalationType
	working.EscalatedAt = &now
	working.EscalationReason = &reason
	working.EscalatedToUserID = s.escalationTarget(ctx, &working)

	updated, err := lifecycle.ApplyTransition(working, domain.TicketStatusEscalated, actor.Role, reason, now)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.UpdateGuarded(ctx, &updated, oldStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket status changed since last read", map[string]any{"expected": oldStatus})
		}
		return nil, apperrors.MapError(err)
	}

	if s.queue != nil {
		_ = s.queue.PushEscalation(ctx, updated.ID)
	}
	s.recordEscalation(ctx, actor, &updated, oldStatus, reason)
	if s.dispatcher != nil {
		publishWithDefaults(ctx, s.dispatcher, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: updated.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketEscalatedPayload{
				EscalationType: escalationType,
				EscalatedBy:    actor.ID,
				Reason:         reason,
			},
		})
	}
	return &updated, nil
}

// Queue returns escalated tickets for the manager dashboard, most urgent
// first.
func (s *EscalationService) Queue(ctx context.Context, actor Actor) ([]domain.Ticket, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusEscalated},
		Limit:    500,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return views.SortByPriority(tickets), nil
}

// PendingNotifications returns queued ticket ids not yet acknowledged by a
// manager, newest first.
func (s *EscalationService) PendingNotifications(ctx context.Context, actor Actor, limit int64) ([]string, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return []string{}, nil
	}
	ids, err := s.queue.PendingEscalations(ctx, limit)
	if err != nil {
		return nil, apperrors.NewTransportError(err)
	}
	return ids, nil
}

// Acknowledge removes a ticket from the pending queue once a manager acted.
func (s *EscalationService) Acknowledge(ctx context.Context, actor Actor, ticketID string) error {
	if err := requireManager(actor); err != nil {
		return err
	}
	if s.queue == nil {
		return nil
	}
	if err := s.queue.AckEscalation(ctx, ticketID); err != nil {
		return apperrors.NewTransportError(err)
	}
	return nil
}

// escalationTarget resolves who the ticket escalates to: the assignee's
// manager when one is recorded.
func (s *EscalationService) escalationTarget(ctx context.Context, ticket *domain.Ticket) *string {
	if s.users == nil || ticket.AssignedToUserID == nil {
		return nil
	}
	assignee, err := s.users.GetByID(ctx, *ticket.AssignedToUserID)
	if err != nil {
		return nil
	}
	return assignee.ManagerID
}

func (s *EscalationService) recordEscalation(ctx context.Context, actor Actor, ticket *domain.Ticket, oldStatus domain.TicketStatus, reason string) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	newValue := map[string]any{
		"status": ticket.Status,
		"reason": reason,
	}
	if ticket.EscalationType != nil {
		newValue["escalation_type"] = *ticket.EscalationType
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedBy:   &actorID,
		ChangedRole: actor.Role,
		ChangeType:  domain.ChangeTypeEscalation,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    newValue,
	})
}
