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
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AssignmentService coordinates binding tickets to agents: manual and
// workload-aware automatic assignment, plus reassignment between agents.
// Workload counters are adjusted server-side; the service re-fetches the
// aggregate after mutating rather than trusting a local copy.
type AssignmentService struct {
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	workloads   repository.WorkloadRepository
	users       repository.UserRepository
	history     repository.TicketHistoryRepository
	slas        *SLAService
	dispatcher  events.Dispatcher
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	TicketRepo     repository.TicketRepository
	AssignmentRepo repository.AssignmentRepository
	WorkloadRepo   repository.WorkloadRepository
	UserRepo       repository.UserRepository
	HistoryRepo    repository.TicketHistoryRepository
	SLAService     *SLAService
	Dispatcher     events.Dispatcher
}

// AssignmentResult reports a completed (re)assignment together with the
// gaining agent's workload as re-read after the counters moved.
type AssignmentResult struct {
	Ticket     *domain.Ticket
	Assignment *domain.Assignment
	Workload   *domain.AgentWorkload
}

// AgentOverview pairs an agent's workload with selection metadata for the
// manager dashboard.
type AgentOverview struct {
	Workload    domain.AgentWorkload
	Recommended bool
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		assignments: deps.AssignmentRepo,
		workloads:   deps.WorkloadRepo,
		users:       deps.UserRepo,
		history:     deps.HistoryRepo,
		slas:        deps.SLAService,
		dispatcher:  deps.Dispatcher,
	}
}

// AssignManual binds a ticket to the chosen agent. Manager and admin only.
// An optional priority override is applied before SLA deadlines are
// recomputed.
func (s *AssignmentService) AssignManual(ctx context.Context, actor Actor, ticketID, agentID string, priorityOverride *domain.TicketPriority, notes string) (*AssignmentResult, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}
	return s.assign(ctx, actor, ticketID, agentID, domain.AssignmentTypeManual, priorityOverride, notes)
}

// AssignAuto picks the least-loaded available agent and binds the ticket to
// them. Selection prefers the lowest active-ticket count, breaking ties by
// least-recent assignment with never-assigned agents first, then agent id.
func (s *AssignmentService) AssignAuto(ctx context.Context, actor Actor, ticketID string) (*AssignmentResult, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	agentID, err := s.selectAgent(ctx)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, actor, ticketID, agentID, domain.AssignmentTypeAuto, nil, "")
}

func (s *AssignmentService) assign(ctx context.Context, actor Actor, ticketID, agentID string, assignmentType domain.AssignmentType, priorityOverride *domain.TicketPriority, notes string) (*AssignmentResult, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusOpen && ticket.Status != domain.TicketStatusReopened {
		return nil, apperrors.NewConflict("ticket is not awaiting assignment", map[string]any{"status": ticket.Status})
	}
	if err := s.validateAgent(ctx, agentID); err != nil {
		return nil, err
	}
	if priorityOverride != nil && !domain.ValidPriority(*priorityOverride) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *priorityOverride})
	}

	now := time.Now()
	oldStatus := ticket.Status
	staged := *ticket
	staged.AssignedToUserID = &agentID
	if priorityOverride != nil {
		staged.Priority = *priorityOverride
	}

	// A reopened ticket goes straight back to work; an open one parks at
	// ASSIGNED until the agent picks it up.
	target := domain.TicketStatusAssigned
	if oldStatus == domain.TicketStatusReopened {
		target = domain.TicketStatusInProgress
	}
	updated, err := lifecycle.ApplyTransition(staged, target, actor.Role, "assignment", now)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.UpdateGuarded(ctx, &updated, oldStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket status changed since last read", map[string]any{"expected": oldStatus})
		}
		return nil, apperrors.MapError(err)
	}

	assignment := &domain.Assignment{
		TicketID:   updated.ID,
		AgentID:    agentID,
		AssignedBy: actor.ID,
		Type:       assignmentType,
		Notes:      notes,
		Status:     domain.AssignmentStatusAssigned,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.workloads.RecordAssigned(ctx, agentID, now); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	if s.slas != nil {
		_ = s.slas.RecordResponse(ctx, updated.ID, now)
		if priorityOverride != nil {
			_ = s.slas.ApplyPriorityChange(ctx, &updated)
		}
	}

	s.recordAssigneeChange(ctx, actor, updated.ID, nil, agentID, "")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: updated.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketAssignedPayload{
			AssignmentID: assignment.ID,
			AgentID:      agentID,
			Type:         assignmentType,
		},
	})

	workload, _ := s.workloads.GetByAgent(ctx, agentID)
	return &AssignmentResult{Ticket: &updated, Assignment: assignment, Workload: workload}, nil
}

// Reassign moves a ticket's current assignment to another agent. The old
// record is superseded, not rewritten, and ticket status is untouched unless
// the ticket was still OPEN.
func (s *AssignmentService) Reassign(ctx context.Context, actor Actor, ticketID, newAgentID, reason string) (*AssignmentResult, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(newAgentID) == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	current, err := s.assignments.GetCurrentByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAssignmentNotFound(ticketID)
		}
		return nil, apperrors.MapError(err)
	}
	if current.AgentID == newAgentID {
		return nil, apperrors.NewValidationError("ticket is already assigned to this agent", map[string]any{"agent_id": newAgentID})
	}
	if err := s.validateAgent(ctx, newAgentID); err != nil {
		return nil, err
	}

	now := time.Now()
	previousAgentID := current.AgentID
	next := &domain.Assignment{
		TicketID:        ticketID,
		AgentID:         newAgentID,
		AssignedBy:      actor.ID,
		Type:            domain.AssignmentTypeManual,
		PreviousAgentID: &previousAgentID,
		Status:          domain.AssignmentStatusAssigned,
	}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		next.ReassignmentReason = &trimmed
	}
	if err := s.assignments.Supersede(ctx, current.ID, now, next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAssignmentNotFound(ticketID)
		}
		return nil, apperrors.MapError(err)
	}

	if ticket.Status == domain.TicketStatusOpen {
		staged := *ticket
		staged.AssignedToUserID = &newAgentID
		updated, err := lifecycle.ApplyTransition(staged, domain.TicketStatusAssigned, actor.Role, "reassignment", now)
		if err != nil {
			return nil, err
		}
		if err := s.tickets.UpdateGuarded(ctx, &updated, domain.TicketStatusOpen); err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket = &updated
	} else {
		ticket.AssignedToUserID = &newAgentID
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.recordAssigneeChange(ctx, actor, ticketID, &previousAgentID, newAgentID, reason)
	s.publish(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticketID,
		Actor:    eventActor(actor),
		Payload: events.TicketReassignedPayload{
			AssignmentID:    next.ID,
			PreviousAgentID: previousAgentID,
			NewAgentID:      newAgentID,
			Reason:          reason,
		},
	})

	workload, _ := s.workloads.GetByAgent(ctx, newAgentID)
	return &AssignmentResult{Ticket: ticket, Assignment: next, Workload: workload}, nil
}

// ListForTicket returns the full assignment history of a ticket.
func (s *AssignmentService) ListForTicket(ctx context.Context, actor Actor, ticketID string) ([]domain.Assignment, error) {
	if !actor.Role.Staff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	assignments, err := s.assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

// ListForAgent returns an agent's assignments, newest first.
func (s *AssignmentService) ListForAgent(ctx context.Context, actor Actor, agentID string, activeOnly bool) ([]domain.Assignment, error) {
	if actor.Role == domain.RoleAgent && actor.ID != agentID {
		return nil, apperrors.NewForbidden("agents may only view their own assignments")
	}
	if !actor.Role.Staff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	assignments, err := s.assignments.ListByAgent(ctx, agentID, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

// AgentOverviews lists every agent workload, flagging the one automatic
// assignment would pick next.
func (s *AssignmentService) AgentOverviews(ctx context.Context, actor Actor) ([]AgentOverview, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	workloads, err := s.workloads.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	recommended := ""
	if best := pickAgent(filterAvailable(workloads)); best != nil {
		recommended = best.AgentID
	}
	overviews := make([]AgentOverview, 0, len(workloads))
	for _, w := range workloads {
		overviews = append(overviews, AgentOverview{Workload: w, Recommended: w.AgentID == recommended})
	}
	return overviews, nil
}

// SetAgentStatus updates availability. Agents may change their own status;
// managers and admins anyone's.
func (s *AssignmentService) SetAgentStatus(ctx context.Context, actor Actor, agentID string, status domain.AgentStatus) error {
	if !domain.ValidAgentStatus(status) {
		return apperrors.NewValidationError("unknown agent status", map[string]any{"status": status})
	}
	if actor.Role == domain.RoleAgent && actor.ID != agentID {
		return apperrors.NewForbidden("agents may only change their own status")
	}
	if !actor.Role.Staff() {
		return apperrors.NewForbidden("staff role required")
	}
	if err := s.workloads.SetStatus(ctx, agentID, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent workload", map[string]any{"agent_id": agentID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AssignmentService) selectAgent(ctx context.Context) (string, error) {
	available, err := s.workloads.ListByStatus(ctx, domain.AgentStatusAvailable)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	best := pickAgent(available)
	if best == nil {
		return "", apperrors.NewNoAgentAvailable()
	}
	return best.AgentID, nil
}

// pickAgent implements the selection order: fewest active tickets, then
// longest since last assignment with never-assigned first, then agent id.
func pickAgent(candidates []domain.AgentWorkload) *domain.AgentWorkload {
	var best *domain.AgentWorkload
	for i := range candidates {
		c := &candidates[i]
		if best == nil || lessLoaded(c, best) {
			best = c
		}
	}
	return best
}

func lessLoaded(a, b *domain.AgentWorkload) bool {
	if a.ActiveTickets != b.ActiveTickets {
		return a.ActiveTickets < b.ActiveTickets
	}
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt != nil:
		return true
	case a.LastAssignedAt != nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt != nil && b.LastAssignedAt != nil && !a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	}
	return a.AgentID < b.AgentID
}

func filterAvailable(workloads []domain.AgentWorkload) []domain.AgentWorkload {
	result := make([]domain.AgentWorkload, 0, len(workloads))
	for _, w := range workloads {
		if w.Status == domain.AgentStatusAvailable {
			result = append(result, w)
		}
	}
	return result
}

func (s *AssignmentService) validateAgent(ctx context.Context, agentID string) error {
	user, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return apperrors.MapError(err)
	}
	if user.Role != domain.RoleAgent {
		return apperrors.NewValidationError("user is not a support agent", map[string]any{"agent_id": agentID})
	}
	if !user.Active {
		return apperrors.NewValidationError("agent account is deactivated", map[string]any{"agent_id": agentID})
	}
	return nil
}

func (s *AssignmentService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *AssignmentService) recordAssigneeChange(ctx context.Context, actor Actor, ticketID string, previousAgentID *string, newAgentID, reason string) {
	if s.history == nil {
		return
	}
	oldValue := map[string]any{}
	if previousAgentID != nil {
		oldValue["agent_id"] = *previousAgentID
	}
	newValue := map[string]any{"agent_id": newAgentID}
	if reason != "" {
		newValue["reason"] = reason
	}
	actorID := actor.ID
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedBy:   &actorID,
		ChangedRole: actor.Role,
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue:    oldValue,
		NewValue:    newValue,
	})
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	publishWithDefaults(ctx, s.dispatcher, event)
}

func requireManager(actor Actor) error {
	if actor.Role != domain.RoleManager && actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("manager role required")
	}
	return nil
}
