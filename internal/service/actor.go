package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
)

// Actor identifies who is performing an operation. Core functions take the
// actor explicitly; nothing in the service layer reads ambient session
// state.
type Actor struct {
	ID   string
	Role domain.UserRole
}

// SystemActor is used by background jobs such as the SLA monitor.
var SystemActor = Actor{ID: "system", Role: domain.RoleManager}

func publishWithDefaults(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func (a Actor) canSeeTicket(ticket *domain.Ticket) bool {
	switch a.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleAgent:
		return ticket.AssignedToUserID != nil && *ticket.AssignedToUserID == a.ID
	case domain.RoleEndUser:
		return ticket.CreatedByUserID == a.ID
	default:
		return false
	}
}
