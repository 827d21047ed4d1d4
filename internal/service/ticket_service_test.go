package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func TestTicketCreate(t *testing.T) {
	env := newTestEnv()
	user := env.addUser(t, domain.RoleEndUser)
	ctx := context.Background()

	t.Run("creates open ticket with sla tracking", func(t *testing.T) {
		ticket := env.createTicket(t, user, domain.TicketPriorityHigh)

		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Nil(t, ticket.AssignedToUserID)
		assert.Contains(t, ticket.TicketNumber, "TKT-")

		tracking, err := env.slas.GetByTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SLAStatusOnTime, tracking.Status)
		assert.Equal(t, domain.TicketPriorityHigh, tracking.Priority)
		assert.True(t, tracking.ResolutionDueAt.After(tracking.ResponseDueAt))
	})

	t.Run("defaults priority to medium", func(t *testing.T) {
		ticket, err := env.ticketService.Create(ctx, asActor(user), TicketCreateInput{
			Title:       "login broken",
			Description: "cannot log in since this morning",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
		assert.Equal(t, domain.CategoryOther, ticket.Category)
	})

	t.Run("rejects blank title", func(t *testing.T) {
		_, err := env.ticketService.Create(ctx, asActor(user), TicketCreateInput{
			Title:       "   ",
			Description: "something",
		})
		assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
	})
}

func TestTicketVisibility(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)
	stranger := env.addUser(t, domain.RoleEndUser)
	agent := env.addUser(t, domain.RoleAgent)
	manager := env.addUser(t, domain.RoleManager)

	ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)

	t.Run("creator sees own ticket", func(t *testing.T) {
		got, err := env.ticketService.Get(ctx, asActor(creator), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
	})

	t.Run("other end user is denied", func(t *testing.T) {
		_, err := env.ticketService.Get(ctx, asActor(stranger), ticket.ID)
		assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
	})

	t.Run("agent without assignment is denied", func(t *testing.T) {
		_, err := env.ticketService.Get(ctx, asActor(agent), ticket.ID)
		assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
	})

	t.Run("manager sees everything", func(t *testing.T) {
		got, err := env.ticketService.Get(ctx, asActor(manager), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
	})

	t.Run("list scopes to creator for end users", func(t *testing.T) {
		env.createTicket(t, stranger, domain.TicketPriorityLow)
		mine, err := env.ticketService.List(ctx, asActor(creator), TicketListFilter{})
		require.NoError(t, err)
		for _, item := range mine {
			assert.Equal(t, creator.ID, item.CreatedByUserID)
		}
	})
}

func TestTicketStatusChanges(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)
	agent := env.addUser(t, domain.RoleAgent)
	manager := env.addUser(t, domain.RoleManager)

	t.Run("open cannot jump to in progress", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		_, err := env.ticketService.ChangeStatus(ctx, asActor(manager), ticket.ID, domain.TicketStatusInProgress, "", nil)
		assert.True(t, apperrors.HasCode(err, "INVALID_TRANSITION"))
	})

	t.Run("assigned agent moves to in progress", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		assigned := env.moveTo(t, ticket, agent, manager, domain.TicketStatusAssigned)

		updated, err := env.ticketService.ChangeStatus(ctx, asActor(agent), assigned.ID, domain.TicketStatusInProgress, "", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	})

	t.Run("stale expected status is rejected", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		assigned := env.moveTo(t, ticket, agent, manager, domain.TicketStatusAssigned)

		expected := domain.TicketStatusOpen
		_, err := env.ticketService.ChangeStatus(ctx, asActor(agent), assigned.ID, domain.TicketStatusInProgress, "", &expected)
		assert.True(t, apperrors.HasCode(err, "CONFLICT"))
	})

	t.Run("resolve freezes sla and completes assignment", func(t *testing.T) {
		resolver := env.addUser(t, domain.RoleAgent)
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		resolved := env.moveTo(t, ticket, resolver, manager, domain.TicketStatusResolved)

		assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)

		tracking, err := env.slas.GetByTicket(ctx, resolved.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SLAStatusResolved, tracking.Status)

		workload, err := env.workloads.GetByAgent(ctx, resolver.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, workload.ActiveTickets)
		assert.Equal(t, 1, workload.CompletedTickets)
	})

	t.Run("end user may close a resolved ticket", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		resolved := env.moveTo(t, ticket, agent, manager, domain.TicketStatusResolved)

		closed, err := env.ticketService.ChangeStatus(ctx, asActor(creator), resolved.ID, domain.TicketStatusClosed, "", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, closed.Status)
		require.NotNil(t, closed.ClosedAt)
	})

	t.Run("end user may not resolve", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		inProgress := env.moveTo(t, ticket, agent, manager, domain.TicketStatusInProgress)

		_, err := env.ticketService.ChangeStatus(ctx, asActor(creator), inProgress.ID, domain.TicketStatusResolved, "", nil)
		assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
	})

	t.Run("reopen clears assignee and restarts sla", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityMedium)
		resolved := env.moveTo(t, ticket, agent, manager, domain.TicketStatusResolved)

		reopened, err := env.ticketService.ChangeStatus(ctx, asActor(manager), resolved.ID, domain.TicketStatusReopened, "still broken", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusReopened, reopened.Status)
		assert.Nil(t, reopened.AssignedToUserID)
		assert.Nil(t, reopened.ResolvedAt)

		tracking, err := env.slas.GetByTicket(ctx, reopened.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SLAStatusOnTime, tracking.Status)
	})
}

func TestTicketDelete(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)
	manager := env.addUser(t, domain.RoleManager)
	admin := env.addUser(t, domain.RoleAdmin)

	t.Run("hard delete requires admin", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityLow)
		err := env.ticketService.Delete(ctx, asActor(manager), ticket.ID, true)
		assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
	})

	t.Run("hard delete removes ticket and tracking", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityLow)
		require.NoError(t, env.ticketService.Delete(ctx, asActor(admin), ticket.ID, true))

		_, err := env.tickets.GetByID(ctx, ticket.ID)
		assert.Error(t, err)
		_, err = env.slas.GetByTicket(ctx, ticket.ID)
		assert.Error(t, err)
	})

	t.Run("soft delete archives as closed", func(t *testing.T) {
		ticket := env.createTicket(t, creator, domain.TicketPriorityLow)
		require.NoError(t, env.ticketService.Delete(ctx, asActor(admin), ticket.ID, false))

		stored, err := env.tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, stored.Status)
		require.NotNil(t, stored.ClosedAt)
	})
}

func TestTicketChangePriority(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	creator := env.addUser(t, domain.RoleEndUser)
	manager := env.addUser(t, domain.RoleManager)

	ticket := env.createTicket(t, creator, domain.TicketPriorityLow)
	before, err := env.slas.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)

	updated, err := env.ticketService.ChangePriority(ctx, asActor(manager), ticket.ID, domain.TicketPriorityCritical, "prod outage")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)

	after, err := env.slas.GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, after.Priority)
	assert.True(t, after.ResolutionDueAt.Before(before.ResolutionDueAt))

	_, err = env.ticketService.ChangePriority(ctx, asActor(creator), ticket.ID, domain.TicketPriorityLow, "")
	assert.True(t, apperrors.HasCode(err, "FORBIDDEN"))
}
