package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/lifecycle"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketService coordinates ticket workflows. Every status mutation goes
// through the lifecycle state machine and is persisted with a status guard,
// so a transition raced by another writer is rejected instead of applied to
// stale state.
type TicketService struct {
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	history     repository.TicketHistoryRepository
	slas        *SLAService
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	AssignmentRepo repository.AssignmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	SLAService     *SLAService
	Dispatcher     events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Tags        []string
}

// TicketUpdateInput carries editable fields; nil means unchanged.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Tags        []string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Category    *domain.TicketCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		assignments: deps.AssignmentRepo,
		history:     deps.HistoryRepo,
		slas:        deps.SLAService,
		dispatcher:  deps.Dispatcher,
	}
}

// Create opens a new ticket and starts its SLA tracking.
func (s *TicketService) Create(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	if input.Category == "" {
		input.Category = domain.CategoryOther
	}
	if !domain.ValidCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		TicketNumber:    generateTicketNumber(),
		CreatedByUserID: actor.ID,
		Title:           title,
		Description:     description,
		Status:          domain.TicketStatusOpen,
		Priority:        input.Priority,
		Category:        input.Category,
		Tags:            input.Tags,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.slas != nil {
		if err := s.slas.StartTracking(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Priority:     ticket.Priority,
			Category:     ticket.Category,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// Get fetches a ticket, enforcing per-role visibility.
func (s *TicketService) Get(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.canSeeTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// GetByNumber fetches a ticket by its human-readable number.
func (s *TicketService) GetByNumber(ctx context.Context, actor Actor, number string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": number})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.canSeeTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// List returns tickets scoped to what the actor may see.
func (s *TicketService) List(ctx context.Context, actor Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		Category:    filter.Category,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	switch actor.Role {
	case domain.RoleEndUser:
		id := actor.ID
		repoFilter.CreatedBy = &id
	case domain.RoleAgent:
		id := actor.ID
		repoFilter.AssignedTo = &id
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListUnassigned returns the queue of tickets awaiting an agent.
func (s *TicketService) ListUnassigned(ctx context.Context, actor Actor) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleManager && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("manager role required")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Unassigned: true,
		Statuses:   []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusReopened},
		Limit:      500,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ChangeStatus applies a lifecycle transition on behalf of the actor.
// expectedStatus, when non-nil, is the status the caller last observed; the
// operation is rejected as stale if the ticket has moved on since.
func (s *TicketService) ChangeStatus(ctx context.Context, actor Actor, ticketID string, target domain.TicketStatus, reason string, expectedStatus *domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(target) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.canSeeTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if expectedStatus != nil && ticket.Status != *expectedStatus {
		return nil, apperrors.NewConflict("ticket status changed since last read", map[string]any{
			"expected": *expectedStatus,
			"actual":   ticket.Status,
		})
	}

	oldStatus := ticket.Status
	updated, err := lifecycle.ApplyTransition(*ticket, target, actor.Role, reason, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.tickets.UpdateGuarded(ctx, &updated, oldStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket status changed since last read", map[string]any{
				"expected": oldStatus,
			})
		}
		return nil, apperrors.MapError(err)
	}

	s.applyStatusSideEffects(ctx, &updated)
	s.recordStatusChange(ctx, actor, updated.ID, oldStatus, updated.Status, reason)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
			Reason:    reason,
		},
	})
	return &updated, nil
}

// Update edits descriptive fields without touching lifecycle state.
func (s *TicketService) Update(ctx context.Context, actor Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleEndUser && ticket.CreatedByUserID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if actor.Role == domain.RoleAgent && !actor.canSeeTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		ticket.Description = description
	}
	if input.Category != nil {
		if !domain.ValidCategory(*input.Category) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": *input.Category})
		}
		ticket.Category = *input.Category
	}
	if input.Tags != nil {
		ticket.Tags = input.Tags
	}
	ticket.UpdatedAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ChangePriority re-prioritizes a ticket and recomputes its SLA deadlines.
// Manager and admin only.
func (s *TicketService) ChangePriority(ctx context.Context, actor Actor, ticketID string, priority domain.TicketPriority, reason string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleManager && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("manager role required")
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	if oldPriority == priority {
		return ticket, nil
	}
	ticket.Priority = priority
	ticket.UpdatedAt = time.Now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.slas != nil {
		if err := s.slas.ApplyPriorityChange(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": priority, "reason": reason})
	return ticket, nil
}

// Delete removes a ticket. Hard deletion drops the row and its SLA record;
// soft deletion closes the ticket outside the normal flow as an
// administrative archive action. Both require ADMIN.
func (s *TicketService) Delete(ctx context.Context, actor Actor, ticketID string, hard bool) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return err
	}
	if hard {
		if s.slas != nil {
			if err := s.slas.DropTracking(ctx, ticket.ID); err != nil {
				return apperrors.MapError(err)
			}
		}
		if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	}

	if ticket.Status == domain.TicketStatusClosed {
		return nil
	}
	oldStatus := ticket.Status
	now := time.Now()
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now
	ticket.UpdatedAt = now
	if err := s.tickets.UpdateGuarded(ctx, ticket, oldStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewConflict("ticket status changed since last read", nil)
		}
		return apperrors.MapError(err)
	}
	if s.slas != nil {
		if err := s.slas.FreezeForTicket(ctx, ticket.ID); err != nil {
			return apperrors.MapError(err)
		}
	}
	s.recordStatusChange(ctx, actor, ticket.ID, oldStatus, ticket.Status, "admin_soft_delete")
	return nil
}

func (s *TicketService) applyStatusSideEffects(ctx context.Context, ticket *domain.Ticket) {
	if s.slas == nil {
		return
	}
	switch ticket.Status {
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		_ = s.slas.FreezeForTicket(ctx, ticket.ID)
		if ticket.Status == domain.TicketStatusResolved {
			s.completeCurrentAssignment(ctx, ticket.ID)
		}
	case domain.TicketStatusReopened:
		_ = s.slas.ReopenTracking(ctx, ticket)
	}
}

func (s *TicketService) completeCurrentAssignment(ctx context.Context, ticketID string) {
	if s.assignments == nil {
		return
	}
	current, err := s.assignments.GetCurrentByTicket(ctx, ticketID)
	if err != nil {
		return
	}
	_ = s.assignments.Complete(ctx, current.ID, time.Now())
}

func (s *TicketService) fetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, actor Actor, ticketID string, oldStatus, newStatus domain.TicketStatus, reason string) {
	s.recordHistory(ctx, actor, ticketID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "reason": reason})
}

func (s *TicketService) recordHistory(ctx context.Context, actor Actor, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedBy:   &actorID,
		ChangedRole: actor.Role,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

// ListHistory returns the audit trail for a ticket the actor may see.
func (s *TicketService) ListHistory(ctx context.Context, actor Actor, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.canSeeTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}

func eventActor(actor Actor) events.Actor {
	return events.Actor{UserID: actor.ID, Role: actor.Role}
}

func generateTicketNumber() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
