package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/sla"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SLAService owns the lifecycle of SLA tracking records: started with the
// ticket, reclassified against wall-clock time, frozen on resolution.
type SLAService struct {
	trackings  repository.SLARepository
	policy     sla.Policy
	dispatcher events.Dispatcher
}

// SLAOverview is a classified tracking as reported to dashboards.
type SLAOverview struct {
	Tracking  domain.SLATracking
	Status    domain.SLAStatus
	Remaining time.Duration
}

// NewSLAService constructs the service.
func NewSLAService(trackings repository.SLARepository, policy sla.Policy, dispatcher events.Dispatcher) *SLAService {
	return &SLAService{trackings: trackings, policy: policy, dispatcher: dispatcher}
}

// StartTracking creates the deadline record for a freshly created ticket.
func (s *SLAService) StartTracking(ctx context.Context, ticket *domain.Ticket) error {
	responseDue, resolutionDue := s.policy.Deadlines(ticket.Priority, ticket.CreatedAt)
	tracking := &domain.SLATracking{
		TicketID:        ticket.ID,
		Priority:        ticket.Priority,
		Category:        ticket.Category,
		ResponseDueAt:   responseDue,
		ResolutionDueAt: resolutionDue,
		Status:          domain.SLAStatusOnTime,
	}
	return s.trackings.Create(ctx, tracking)
}

// GetForTicket returns the tracking for one ticket classified at now.
func (s *SLAService) GetForTicket(ctx context.Context, ticketID string) (*SLAOverview, error) {
	tracking, err := s.trackings.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla tracking", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	now := time.Now()
	return &SLAOverview{
		Tracking:  *tracking,
		Status:    s.policy.Classify(now, *tracking),
		Remaining: sla.Remaining(now, *tracking),
	}, nil
}

// RecordResponse stamps first response on assignment. Responses after the
// response deadline mark the tracking permanently response-breached.
func (s *SLAService) RecordResponse(ctx context.Context, ticketID string, at time.Time) error {
	tracking, err := s.trackings.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if tracking.Frozen() || tracking.ResponseBreached {
		return nil
	}
	if at.After(tracking.ResponseDueAt) {
		tracking.ResponseBreached = true
		return s.trackings.Update(ctx, tracking)
	}
	return nil
}

// FreezeForTicket stops classification when the ticket resolves or closes.
func (s *SLAService) FreezeForTicket(ctx context.Context, ticketID string) error {
	tracking, err := s.trackings.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if tracking.Frozen() {
		return nil
	}
	tracking.Status = domain.SLAStatusResolved
	return s.trackings.Update(ctx, tracking)
}

// ReopenTracking restarts the deadline clock when a ticket reopens. The
// window is recomputed from the reopen time so the reopened work gets a full
// resolution window rather than inheriting an already-expired one.
func (s *SLAService) ReopenTracking(ctx context.Context, ticket *domain.Ticket) error {
	tracking, err := s.trackings.GetByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.StartTracking(ctx, ticket)
		}
		return err
	}
	now := time.Now()
	responseDue, resolutionDue := s.policy.Deadlines(ticket.Priority, now)
	tracking.Priority = ticket.Priority
	tracking.ResponseDueAt = responseDue
	tracking.ResolutionDueAt = resolutionDue
	tracking.ResolutionBreached = false
	tracking.Status = domain.SLAStatusOnTime
	return s.trackings.Update(ctx, tracking)
}

// ApplyPriorityChange recomputes deadlines after a re-prioritization. The
// window is re-anchored at the original tracking start so raising priority
// can move a ticket straight into AT_RISK or BREACHED.
func (s *SLAService) ApplyPriorityChange(ctx context.Context, ticket *domain.Ticket) error {
	tracking, err := s.trackings.GetByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if tracking.Frozen() {
		return nil
	}
	responseDue, resolutionDue := s.policy.Deadlines(ticket.Priority, tracking.CreatedAt)
	tracking.Priority = ticket.Priority
	tracking.ResponseDueAt = responseDue
	tracking.ResolutionDueAt = resolutionDue
	tracking.Status = s.policy.Classify(time.Now(), *tracking)
	return s.trackings.Update(ctx, tracking)
}

// DropTracking removes the record when its ticket is hard-deleted.
func (s *SLAService) DropTracking(ctx context.Context, ticketID string) error {
	return s.trackings.DeleteByTicket(ctx, ticketID)
}

// Warnings lists active trackings currently classified AT_RISK.
func (s *SLAService) Warnings(ctx context.Context) ([]SLAOverview, error) {
	return s.listClassified(ctx, domain.SLAStatusAtRisk)
}

// Breaches lists active trackings currently classified BREACHED.
func (s *SLAService) Breaches(ctx context.Context) ([]SLAOverview, error) {
	return s.listClassified(ctx, domain.SLAStatusBreached)
}

func (s *SLAService) listClassified(ctx context.Context, want domain.SLAStatus) ([]SLAOverview, error) {
	active, err := s.trackings.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := time.Now()
	result := []SLAOverview{}
	for _, tracking := range active {
		status := s.policy.Classify(now, tracking)
		if status != want {
			continue
		}
		result = append(result, SLAOverview{
			Tracking:  tracking,
			Status:    status,
			Remaining: sla.Remaining(now, tracking),
		})
	}
	return result, nil
}

// RefreshAll reclassifies every active tracking and persists changes. Newly
// breached trackings get their breach flag set, an sla_breached event, and
// are returned so the monitor can act on them.
func (s *SLAService) RefreshAll(ctx context.Context, now time.Time) ([]domain.SLATracking, error) {
	active, err := s.trackings.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var newlyBreached []domain.SLATracking
	for i := range active {
		tracking := active[i]
		status := s.policy.Classify(now, tracking)
		breachedNow := status == domain.SLAStatusBreached && !tracking.ResolutionBreached
		if status == tracking.Status && !breachedNow {
			continue
		}
		tracking.Status = status
		if status == domain.SLAStatusBreached {
			tracking.ResolutionBreached = true
		}
		if err := s.trackings.Update(ctx, &tracking); err != nil {
			return newlyBreached, err
		}
		if breachedNow {
			newlyBreached = append(newlyBreached, tracking)
			s.publishBreach(ctx, tracking)
		}
	}
	return newlyBreached, nil
}

func (s *SLAService) publishBreach(ctx context.Context, tracking domain.SLATracking) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLABreached,
		TicketID:  tracking.TicketID,
		Actor:     events.Actor{UserID: SystemActor.ID, Role: SystemActor.Role},
		Timestamp: time.Now(),
		Payload: events.SLABreachedPayload{
			TrackingID:      tracking.ID,
			Priority:        tracking.Priority,
			ResolutionDueAt: tracking.ResolutionDueAt,
		},
	})
}
